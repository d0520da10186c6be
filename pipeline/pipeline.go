// Package pipeline runs one transcript through summarization and then fans the
// summary out to the configured destinations, one after the other.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"meeting_minutes_publisher/generator"
	"meeting_minutes_publisher/metrics"
	"meeting_minutes_publisher/publisher"
	"meeting_minutes_publisher/transcript"
)

// ErrSummaryNotGenerated aborts a run before any destination is touched.
var ErrSummaryNotGenerated = errors.New("summary could not be generated")

// Summarizer produces the minutes for a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (generator.Summary, error)
}

// Policy decides what happens after a destination fails.
type Policy string

const (
	// FailFast stops at the first failed destination.
	FailFast Policy = "fail_fast"
	// Isolated attempts every destination regardless of earlier failures.
	Isolated Policy = "isolated"
)

// Status summarizes the receipts of a run.
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

// StepError reports the destination that failed.
type StepError struct {
	Destination publisher.Destination
	Err         error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Destination, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Request is one unit of work. Empty targets select each publisher's default.
type Request struct {
	Transcript transcript.Transcript
	// Artifact names the minutes everywhere; derived from the file id when empty.
	Artifact       string
	DocumentParent string
	ChatChannel    string
	FolderID       string
	NotifyEmail    string
}

// Result is the outcome of a run. It is returned even when the run fails.
type Result struct {
	RunID      string              `json:"runId"`
	Artifact   string              `json:"artifact"`
	Status     Status              `json:"status"`
	Summary    generator.Summary   `json:"-"`
	Receipts   []publisher.Receipt `json:"receipts"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
}

// Receipt returns the receipt recorded for dest, if that step ran.
func (r *Result) Receipt(dest publisher.Destination) (publisher.Receipt, bool) {
	for _, rc := range r.Receipts {
		if rc.Destination == dest {
			return rc, true
		}
	}
	return publisher.Receipt{}, false
}

// Options configures an Orchestrator. Files and Notifier are optional steps.
type Options struct {
	Policy   Policy
	Files    publisher.Publisher
	Notifier publisher.Publisher
	Logger   *slog.Logger
}

// Orchestrator owns the step order: file store, document, chat, notification.
type Orchestrator struct {
	summarizer Summarizer
	steps      []publisher.Publisher
	policy     Policy
	logger     *slog.Logger
}

func New(summarizer Summarizer, document, chat publisher.Publisher, opts Options) (*Orchestrator, error) {
	if summarizer == nil || document == nil || chat == nil {
		return nil, errors.New("pipeline: summarizer, document and chat publishers are required")
	}
	policy := opts.Policy
	switch policy {
	case "":
		policy = FailFast
	case FailFast, Isolated:
	default:
		return nil, fmt.Errorf("pipeline: unknown policy %q", policy)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var steps []publisher.Publisher
	if opts.Files != nil {
		steps = append(steps, opts.Files)
	}
	steps = append(steps, document, chat)
	if opts.Notifier != nil {
		steps = append(steps, opts.Notifier)
	}
	return &Orchestrator{summarizer: summarizer, steps: steps, policy: policy, logger: logger}, nil
}

// Run summarizes req.Transcript and publishes the summary. On failure the
// returned Result still carries every receipt produced so far.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Artifact: req.Artifact, StartedAt: time.Now()}
	if res.Artifact == "" {
		res.Artifact = ArtifactName(req.Transcript.FileID, res.StartedAt)
	}
	log := o.logger.With("run_id", res.RunID, "artifact", res.Artifact)
	log.Info("pipeline started", "source", req.Transcript.Source, "policy", o.policy)

	sum, err := o.summarizer.Summarize(ctx, req.Transcript.Text)
	if err == nil && strings.TrimSpace(sum.Markdown) == "" {
		err = generator.ErrEmptySummary
	}
	if err != nil {
		o.finish(log, res)
		return res, fmt.Errorf("%w: %w", ErrSummaryNotGenerated, err)
	}
	res.Summary = sum

	var errs []error
	for _, p := range o.steps {
		receipt, err := p.Publish(ctx, req.target(p.Destination()), res.Artifact, sum.Markdown)
		res.Receipts = append(res.Receipts, receipt)
		if err == nil {
			log.Info("destination published", "destination", p.Destination(), "id", receipt.ID)
			continue
		}

		log.Error("destination failed", "destination", p.Destination(), "error", err)
		stepErr := &StepError{Destination: p.Destination(), Err: err}
		if o.policy == FailFast {
			o.finish(log, res)
			return res, stepErr
		}
		errs = append(errs, stepErr)
	}

	o.finish(log, res)
	return res, errors.Join(errs...)
}

func (o *Orchestrator) finish(log *slog.Logger, res *Result) {
	res.FinishedAt = time.Now()
	res.Status = statusOf(res.Receipts)
	metrics.RecordRun(string(res.Status))
	log.Info("pipeline finished", "status", res.Status, "receipts", len(res.Receipts), "elapsed", res.FinishedAt.Sub(res.StartedAt))
}

func (r Request) target(dest publisher.Destination) string {
	switch dest {
	case publisher.Document:
		return r.DocumentParent
	case publisher.Chat:
		return r.ChatChannel
	case publisher.FileStore:
		return r.FolderID
	case publisher.ChatDM:
		return r.NotifyEmail
	}
	return ""
}

func statusOf(receipts []publisher.Receipt) Status {
	if len(receipts) == 0 {
		return StatusFailed
	}
	ok := 0
	for _, r := range receipts {
		if r.Succeeded {
			ok++
		}
	}
	switch ok {
	case len(receipts):
		return StatusComplete
	case 0:
		return StatusFailed
	}
	return StatusPartial
}

// ArtifactName returns "Ata-<fileID>-<unix millis>"; a random id stands in for
// a missing fileID.
func ArtifactName(fileID string, at time.Time) string {
	if fileID == "" {
		fileID = uuid.NewString()
	}
	return fmt.Sprintf("Ata-%s-%d", fileID, at.UnixMilli())
}
