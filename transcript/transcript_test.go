package transcript

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
)

type fakeDrive struct {
	files    map[string]*drive.File
	content  map[string]string
	exported []string
	query    string
	listed   []*drive.File
	err      error
}

func (f *fakeDrive) Metadata(_ context.Context, id string) (*drive.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	meta, ok := f.files[id]
	if !ok {
		return nil, errors.New("notFound")
	}
	return meta, nil
}

func (f *fakeDrive) Download(_ context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.content[id])), nil
}

func (f *fakeDrive) Export(_ context.Context, id, mimeType string) (io.ReadCloser, error) {
	f.exported = append(f.exported, id+" "+mimeType)
	return io.NopCloser(strings.NewReader(f.content[id])), nil
}

func (f *fakeDrive) List(_ context.Context, q string, _ int64) ([]*drive.File, error) {
	f.query = q
	return f.listed, f.err
}

func TestResolvePrefersInlineContent(t *testing.T) {
	dr := &fakeDrive{err: errors.New("must not be called")}
	r := newResolver(dr, Options{}, nil)

	tr, err := r.Resolve(context.Background(), Event{FileID: "f1", FileName: "Reunião", Content: "Ana: oi"})
	require.NoError(t, err)
	assert.Equal(t, Transcript{Text: "Ana: oi", FileID: "f1", FileName: "Reunião", Source: "body"}, tr)
}

func TestResolveDownloadsFromDrive(t *testing.T) {
	dr := &fakeDrive{
		files:   map[string]*drive.File{"f1": {Id: "f1", Name: "meet.txt", MimeType: "text/plain"}},
		content: map[string]string{"f1": "\uFEFFAna: bom dia"},
	}
	r := newResolver(dr, Options{}, nil)

	tr, err := r.Resolve(context.Background(), Event{FileID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana: bom dia", tr.Text)
	assert.Equal(t, "meet.txt", tr.FileName)
	assert.Equal(t, "drive", tr.Source)
	assert.Empty(t, dr.exported)
}

func TestResolveExportsGoogleDocs(t *testing.T) {
	dr := &fakeDrive{
		files:   map[string]*drive.File{"doc": {Id: "doc", Name: "Transcrição", MimeType: googleDocMime}},
		content: map[string]string{"doc": "texto"},
	}
	r := newResolver(dr, Options{}, nil)

	tr, err := r.Resolve(context.Background(), Event{FileID: "doc", FileName: "Ata semanal"})
	require.NoError(t, err)
	assert.Equal(t, "texto", tr.Text)
	assert.Equal(t, "Ata semanal", tr.FileName)
	assert.Equal(t, []string{"doc text/plain"}, dr.exported)
}

func TestResolveDriveLimits(t *testing.T) {
	dr := &fakeDrive{
		files:   map[string]*drive.File{"big": {Id: "big"}, "empty": {Id: "empty"}},
		content: map[string]string{"big": strings.Repeat("x", 11), "empty": "  \n"},
	}
	r := newResolver(dr, Options{MaxBytes: 10}, nil)

	_, err := r.Resolve(context.Background(), Event{FileID: "big"})
	assert.ErrorContains(t, err, "exceeds 10 bytes")

	_, err = r.Resolve(context.Background(), Event{FileID: "empty"})
	assert.ErrorIs(t, err, ErrNoTranscript)

	_, err = r.Resolve(context.Background(), Event{FileID: "missing"})
	assert.ErrorContains(t, err, "notFound")
}

func TestResolveFallbackFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meet-transcription.txt")
	require.NoError(t, os.WriteFile(path, []byte("Carla: pauta"), 0o644))

	r := newResolver(nil, Options{FallbackPath: path}, nil)
	tr, err := r.Resolve(context.Background(), Event{FileID: "ID00001"})
	require.NoError(t, err)
	assert.Equal(t, "Carla: pauta", tr.Text)
	assert.Equal(t, "ID00001", tr.FileID)
	assert.Equal(t, "file", tr.Source)

	r = newResolver(nil, Options{FallbackPath: filepath.Join(t.TempDir(), "none.txt")}, nil)
	_, err = r.Resolve(context.Background(), Event{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveNothing(t *testing.T) {
	r := NewResolver(nil, Options{}, nil)
	_, err := r.Resolve(context.Background(), Event{FileID: "f1", Content: "   "})
	assert.ErrorIs(t, err, ErrNoTranscript)
}

func TestRecentFiles(t *testing.T) {
	dr := &fakeDrive{listed: []*drive.File{
		{Id: "a", Name: "Meet 1", MimeType: "text/plain", CreatedTime: "2026-10-18T12:00:00Z"},
	}}
	r := newResolver(dr, Options{}, nil)

	since := time.Date(2026, 10, 18, 11, 55, 0, 0, time.UTC)
	files, err := r.RecentFiles(context.Background(), "folder'1", since)
	require.NoError(t, err)
	assert.Equal(t, `'folder\'1' in parents and createdTime > '2026-10-18T11:55:00Z' and trashed = false`, dr.query)
	require.Len(t, files, 1)
	assert.Equal(t, "a", files[0].ID)
	assert.Equal(t, 12, files[0].CreatedTime.Hour())

	_, err = NewResolver(nil, Options{}, nil).RecentFiles(context.Background(), "f", since)
	assert.Error(t, err)
}

func TestIsTranscriptFile(t *testing.T) {
	yes := []string{
		"Transcrição - Daily",
		"REUNIÃO de planejamento",
		"Meeting notes",
		"Gravação do Meet",
		"Ata 2026-10-18",
		"gemini notes",
	}
	for _, name := range yes {
		assert.True(t, IsTranscriptFile(name), name)
	}

	no := []string{"orçamento.xlsx", "foto.png", ""}
	for _, name := range no {
		assert.False(t, IsTranscriptFile(name), name)
	}
}
