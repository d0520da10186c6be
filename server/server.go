// Package server exposes the webhook that triggers a minutes run.
//
// A request moves through one of three states before it is answered:
// VERIFY (GET with a challenge), HEALTH (plain GET) or EVENT (POST).
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"meeting_minutes_publisher/metrics"
	"meeting_minutes_publisher/pipeline"
	"meeting_minutes_publisher/publisher"
	"meeting_minutes_publisher/transcript"
)

// LegacyWebhookPath stays routed for existing Apps Script deployments.
const LegacyWebhookPath = "/api/webhook/google-drive"

const (
	stateVerify    = "verify"
	stateHealth    = "health"
	stateEvent     = "event"
	stateRejected  = "rejected"
	maxEventBytes  = 16 << 20
	successMessage = "Integração concluída com sucesso!"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Resolver turns an event into transcript text.
type Resolver interface {
	Resolve(ctx context.Context, ev transcript.Event) (transcript.Transcript, error)
}

// Options configures the webhook.
type Options struct {
	WebhookPath string
	// Token, when non-empty, must be sent in X-Goog-Channel-Token or
	// X-Webhook-Token on every POST.
	Token string
	// RequireKeyword ignores events whose file name does not look like a transcript.
	RequireKeyword bool
	Logger         *slog.Logger
}

type Server struct {
	runner   Runner
	resolver Resolver
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

func New(runner Runner, resolver Resolver, opts Options) (*Server, error) {
	if runner == nil || resolver == nil {
		return nil, errors.New("runner and transcript resolver are required")
	}
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/webhook"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, resolver: resolver, opts: opts, logger: logger, now: time.Now}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", metrics.Handler())
	r.HandleFunc(s.opts.WebhookPath, s.handleWebhook)
	if s.opts.WebhookPath != LegacyWebhookPath {
		r.HandleFunc(LegacyWebhookPath, s.handleWebhook)
	}
	return r
}

// --- Handlers ---

type healthResp struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type eventResp struct {
	Message      string              `json:"message"`
	Artifact     string              `json:"artifact,omitempty"`
	NotionPageID string              `json:"notionPageId,omitempty"`
	SlackID      string              `json:"slackId,omitempty"`
	DriveFileID  string              `json:"driveFileId,omitempty"`
	Receipts     []publisher.Receipt `json:"receipts,omitempty"`
}

type errorResp struct {
	Error    string              `json:"error"`
	Receipts []publisher.Receipt `json:"receipts"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if challenge := r.URL.Query().Get("challenge"); challenge != "" {
			metrics.RecordWebhook(stateVerify)
			s.logger.Info("webhook verification received")
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, challenge)
			return
		}
		metrics.RecordWebhook(stateHealth)
		writeJSON(w, http.StatusOK, healthResp{
			Status:    "ok",
			Message:   "Webhook endpoint is running",
			Timestamp: s.now().UTC().Format(time.RFC3339),
		})
	case http.MethodPost:
		metrics.RecordWebhook(stateEvent)
		s.handleEvent(w, r)
	default:
		metrics.RecordWebhook(stateRejected)
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, errorResp{Error: "method not allowed", Receipts: []publisher.Receipt{}})
	}
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.logger.Warn("webhook token rejected", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, errorResp{Error: "unauthorized", Receipts: []publisher.Receipt{}})
		return
	}

	var ev transcript.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&ev); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, nil, err)
		return
	}
	log := s.logger.With("file_id", ev.FileID, "file_name", ev.FileName)

	if s.opts.RequireKeyword && ev.FileName != "" && !transcript.IsTranscriptFile(ev.FileName) {
		log.Info("event ignored, not a transcript")
		writeJSON(w, http.StatusOK, eventResp{Message: "ignored"})
		return
	}

	// Once accepted, the run finishes even if the caller hangs up.
	ctx := context.WithoutCancel(r.Context())

	tr, err := s.resolver.Resolve(ctx, ev)
	if err != nil {
		s.fail(w, nil, err)
		return
	}
	log.Info("event accepted", "source", tr.Source, "chars", len(tr.Text))

	res, err := s.runner.Run(ctx, pipeline.Request{
		Transcript:     tr,
		DocumentParent: ev.NotionParentID,
		ChatChannel:    ev.SlackChannel,
	})
	if err != nil {
		s.fail(w, res, err)
		return
	}

	out := eventResp{Message: successMessage, Artifact: res.Artifact, Receipts: res.Receipts}
	if rc, ok := res.Receipt(publisher.Document); ok {
		out.NotionPageID = rc.ID
	}
	if rc, ok := res.Receipt(publisher.Chat); ok {
		out.SlackID = rc.ID
	}
	if rc, ok := res.Receipt(publisher.FileStore); ok {
		out.DriveFileID = rc.ID
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.opts.Token == "" {
		return true
	}
	got := r.Header.Get("X-Goog-Channel-Token")
	if got == "" {
		got = r.Header.Get("X-Webhook-Token")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.Token)) == 1
}

// fail answers 500 with the error and whatever receipts the run produced.
func (s *Server) fail(w http.ResponseWriter, res *pipeline.Result, err error) {
	receipts := []publisher.Receipt{}
	if res != nil && res.Receipts != nil {
		receipts = res.Receipts
	}
	s.logger.Error("webhook event failed", "error", err, "receipts", len(receipts))
	writeJSON(w, http.StatusInternalServerError, errorResp{Error: err.Error(), Receipts: receipts})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
