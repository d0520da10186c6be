package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultDriveMimeType = "text/markdown"

// Drive upload encodings.
const (
	EncodingStream = "stream"
	EncodingBuffer = "buffer"
)

type driveFiles interface {
	Create(ctx context.Context, meta *drive.File, media io.Reader, contentType string) (*drive.File, error)
}

type driveService struct{ svc *drive.Service }

func (d driveService) Create(ctx context.Context, meta *drive.File, media io.Reader, contentType string) (*drive.File, error) {
	return d.svc.Files.Create(meta).
		Media(media, googleapi.ContentType(contentType)).
		Fields("id", "name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

// DriveCredentials holds either an OAuth client with a refresh token or a
// service account key. The refresh token wins when both are set.
type DriveCredentials struct {
	ClientID           string
	ClientSecret       string
	RedirectURL        string
	RefreshToken       string
	ServiceAccountJSON []byte
}

// NewDriveService builds a Drive client from creds. It returns
// ErrNotConfigured when no credential is present.
func NewDriveService(ctx context.Context, creds DriveCredentials) (*drive.Service, error) {
	switch {
	case creds.RefreshToken != "":
		cfg := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{drive.DriveScope},
		}
		ts := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
		return drive.NewService(ctx, option.WithTokenSource(ts))
	case len(creds.ServiceAccountJSON) > 0:
		gc, err := google.CredentialsFromJSON(ctx, creds.ServiceAccountJSON, drive.DriveScope)
		if err != nil {
			return nil, fmt.Errorf("drive service account: %w", err)
		}
		return drive.NewService(ctx, option.WithCredentials(gc))
	default:
		return nil, fmt.Errorf("drive: %w", ErrNotConfigured)
	}
}

// DriveOptions configures uploads.
type DriveOptions struct {
	FolderID string
	// Encoding is EncodingStream (default) or EncodingBuffer.
	Encoding string
	MimeType string
}

// DrivePublisher uploads the summary as a markdown file into a folder.
type DrivePublisher struct {
	files  driveFiles
	opts   DriveOptions
	logger *slog.Logger
}

func NewDrivePublisher(svc *drive.Service, opts DriveOptions, logger *slog.Logger) *DrivePublisher {
	var files driveFiles
	if svc != nil {
		files = driveService{svc: svc}
	}
	return newDrivePublisher(files, opts, logger)
}

func newDrivePublisher(files driveFiles, opts DriveOptions, logger *slog.Logger) *DrivePublisher {
	if opts.Encoding == "" {
		opts.Encoding = EncodingStream
	}
	if opts.MimeType == "" {
		opts.MimeType = defaultDriveMimeType
	}
	return &DrivePublisher{files: files, opts: opts, logger: loggerOrDefault(logger)}
}

func (p *DrivePublisher) Destination() Destination { return FileStore }

// Publish stores summary as <title>.md in target (or the configured folder).
// The receipt id is the Drive file id.
func (p *DrivePublisher) Publish(ctx context.Context, target, title, summary string) (Receipt, error) {
	start := time.Now()
	folder := target
	if folder == "" {
		folder = p.opts.FolderID
	}
	id, err := p.Upload(ctx, folder, title, []byte(summary))
	return settle(FileStore, start, id, err)
}

// Upload creates a file named name (".md" appended when missing) under
// folderID and returns its id.
func (p *DrivePublisher) Upload(ctx context.Context, folderID, name string, content []byte) (string, error) {
	if p.files == nil {
		return "", fmt.Errorf("drive: %w", ErrNotConfigured)
	}
	if folderID == "" {
		return "", fmt.Errorf("drive: folder id is required")
	}
	if len(content) == 0 {
		return "", fmt.Errorf("drive: %w", ErrEmptyContent)
	}
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}

	meta := &drive.File{
		Name:     name,
		Parents:  []string{folderID},
		MimeType: p.opts.MimeType,
	}

	var (
		file *drive.File
		err  error
	)
	switch p.opts.Encoding {
	case EncodingBuffer:
		file, err = p.files.Create(ctx, meta, bytes.NewReader(content), p.opts.MimeType)
	case EncodingStream:
		pr, pw := io.Pipe()
		go func() {
			_, werr := pw.Write(content)
			pw.CloseWithError(werr)
		}()
		file, err = p.files.Create(ctx, meta, pr, p.opts.MimeType)
		// Unblocks the writer if Create returned before draining the pipe.
		pr.Close()
	default:
		return "", fmt.Errorf("drive: unknown encoding %q", p.opts.Encoding)
	}
	if err != nil {
		return "", fmt.Errorf("drive upload %s: %w", name, err)
	}

	p.logger.Info("drive file uploaded", "file_id", file.Id, "name", name, "folder", folderID, "encoding", p.opts.Encoding)
	return file.Id, nil
}
