// Package transcript acquires the raw meeting transcript behind a webhook
// event: inline content, a Google Drive file, or a local fallback file.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
)

const (
	googleDocMime      = "application/vnd.google-apps.document"
	defaultMaxBytes    = 10 << 20
	defaultRecentLimit = 50
)

// ErrNoTranscript means no source produced any text.
var ErrNoTranscript = errors.New("no transcript available")

// Event is the webhook payload sent by the Drive watcher (Apps Script).
type Event struct {
	FileID         string `json:"fileId"`
	FileName       string `json:"fileName"`
	Content        string `json:"content"`
	CreatedAt      string `json:"createdAt,omitempty"`
	NotionParentID string `json:"notionParentId,omitempty"`
	SlackChannel   string `json:"slackChannel,omitempty"`
}

// Transcript is the text to summarize plus where it came from.
type Transcript struct {
	Text     string
	FileID   string
	FileName string
	// Source is body, drive or file.
	Source string
}

// File is a Drive file as listed by RecentFiles.
type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mimeType"`
	CreatedTime time.Time `json:"createdTime"`
}

type driveReader interface {
	Metadata(ctx context.Context, fileID string) (*drive.File, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error)
	List(ctx context.Context, query string, limit int64) ([]*drive.File, error)
}

type driveService struct{ svc *drive.Service }

func (d driveService) Metadata(ctx context.Context, fileID string) (*drive.File, error) {
	return d.svc.Files.Get(fileID).Fields("id", "name", "mimeType", "createdTime").SupportsAllDrives(true).Context(ctx).Do()
}

func (d driveService) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := d.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (d driveService) Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	resp, err := d.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (d driveService) List(ctx context.Context, query string, limit int64) ([]*drive.File, error) {
	resp, err := d.svc.Files.List().
		Q(query).
		Fields("files(id, name, mimeType, createdTime)").
		OrderBy("createdTime desc").
		PageSize(limit).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// Options configures a Resolver.
type Options struct {
	// FallbackPath is read when the event carries neither content nor a file id.
	FallbackPath string
	// MaxBytes caps a Drive download; defaults to 10 MiB.
	MaxBytes int64
}

// Resolver finds the transcript text for an Event.
type Resolver struct {
	drive  driveReader
	opts   Options
	logger *slog.Logger
}

// NewResolver builds a Resolver. svc may be nil, which disables Drive fetches.
func NewResolver(svc *drive.Service, opts Options, logger *slog.Logger) *Resolver {
	var dr driveReader
	if svc != nil {
		dr = driveService{svc: svc}
	}
	return newResolver(dr, opts, logger)
}

func newResolver(dr driveReader, opts Options, logger *slog.Logger) *Resolver {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{drive: dr, opts: opts, logger: logger}
}

// Resolve prefers inline content, then the Drive file, then the fallback file.
func (r *Resolver) Resolve(ctx context.Context, ev Event) (Transcript, error) {
	if strings.TrimSpace(ev.Content) != "" {
		return Transcript{Text: ev.Content, FileID: ev.FileID, FileName: ev.FileName, Source: "body"}, nil
	}

	if ev.FileID != "" && r.drive != nil {
		t, err := r.fromDrive(ctx, ev.FileID)
		if err != nil {
			return Transcript{}, err
		}
		if ev.FileName != "" {
			t.FileName = ev.FileName
		}
		return t, nil
	}

	if r.opts.FallbackPath != "" {
		data, err := os.ReadFile(r.opts.FallbackPath)
		if err != nil {
			return Transcript{}, fmt.Errorf("read fallback transcript: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return Transcript{}, fmt.Errorf("%w: %s is empty", ErrNoTranscript, r.opts.FallbackPath)
		}
		r.logger.Info("using fallback transcript", "path", r.opts.FallbackPath)
		return Transcript{Text: string(data), FileID: ev.FileID, FileName: ev.FileName, Source: "file"}, nil
	}

	return Transcript{}, ErrNoTranscript
}

func (r *Resolver) fromDrive(ctx context.Context, fileID string) (Transcript, error) {
	meta, err := r.drive.Metadata(ctx, fileID)
	if err != nil {
		return Transcript{}, fmt.Errorf("drive file %s: %w", fileID, err)
	}

	var body io.ReadCloser
	if meta.MimeType == googleDocMime {
		body, err = r.drive.Export(ctx, fileID, "text/plain")
	} else {
		body, err = r.drive.Download(ctx, fileID)
	}
	if err != nil {
		return Transcript{}, fmt.Errorf("download drive file %s: %w", fileID, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, r.opts.MaxBytes+1))
	if err != nil {
		return Transcript{}, fmt.Errorf("read drive file %s: %w", fileID, err)
	}
	if int64(len(data)) > r.opts.MaxBytes {
		return Transcript{}, fmt.Errorf("drive file %s exceeds %d bytes", fileID, r.opts.MaxBytes)
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")
	if strings.TrimSpace(text) == "" {
		return Transcript{}, fmt.Errorf("%w: drive file %s is empty", ErrNoTranscript, fileID)
	}

	r.logger.Info("transcript downloaded", "file_id", fileID, "name", meta.Name, "bytes", len(data))
	return Transcript{Text: text, FileID: fileID, FileName: meta.Name, Source: "drive"}, nil
}

// RecentFiles lists files created in folderID after since, newest first.
func (r *Resolver) RecentFiles(ctx context.Context, folderID string, since time.Time) ([]File, error) {
	if r.drive == nil {
		return nil, errors.New("drive client not configured")
	}
	q := fmt.Sprintf("'%s' in parents and createdTime > '%s' and trashed = false",
		strings.ReplaceAll(folderID, "'", `\'`), since.UTC().Format(time.RFC3339))

	files, err := r.drive.List(ctx, q, defaultRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("list drive folder %s: %w", folderID, err)
	}
	out := make([]File, 0, len(files))
	for _, f := range files {
		created, _ := time.Parse(time.RFC3339, f.CreatedTime)
		out = append(out, File{ID: f.Id, Name: f.Name, MimeType: f.MimeType, CreatedTime: created})
	}
	return out, nil
}
