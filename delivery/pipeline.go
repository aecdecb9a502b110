// Package delivery fetches size-bounded PDF content from the blob store,
// derives metadata from it, and persists explicit downloads to disk.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/openshelf/bookapp/counter"
	"github.com/openshelf/bookapp/store"
	"github.com/openshelf/bookapp/utils"
)

// ErrPersistFailed reports a local file-write failure. When it is returned
// the download counter has not been touched.
var ErrPersistFailed = errors.New("failed to persist download")

// DefaultMaxBytes caps how much PDF content is ever buffered, 50 MB.
const DefaultMaxBytes int64 = 50 * 1024 * 1024

// contentURLExpiry bounds how long a resolved content URL stays valid.
// URLs are resolved per request and never stored.
const contentURLExpiry = 15 * time.Minute

// Preview is a decoded first-page view of a document: the total page count
// plus a render handle for page one.
type Preview struct {
	PageCount int
	FirstPage pdf.Page
}

type Pipeline struct {
	blob         store.Blob
	counters     *counter.Updater
	maxBytes     int64
	downloadsDir string
}

// NewPipeline wires the pipeline. maxBytes <= 0 falls back to
// DefaultMaxBytes; the ceiling is enforced on every content fetch.
func NewPipeline(blob store.Blob, counters *counter.Updater, maxBytes int64, downloadsDir string) *Pipeline {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Pipeline{blob: blob, counters: counters, maxBytes: maxBytes, downloadsDir: downloadsDir}
}

// FetchSize reads blob metadata only and formats the byte length with the
// largest unit that is at least 1: MB, then KB, then raw bytes.
func (p *Pipeline) FetchSize(ctx context.Context, ref string) (string, error) {
	info, err := p.blob.Metadata(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("fetch size: %w", err)
	}
	return FormatSize(info.SizeBytes), nil
}

// FormatSize renders a byte count as "2.00 MB", "1.50 KB" or "512.00 bytes".
func FormatSize(sizeBytes int64) string {
	b := float64(sizeBytes)
	kb := b / 1024
	mb := kb / 1024
	switch {
	case mb >= 1:
		return fmt.Sprintf("%.2f MB", mb)
	case kb >= 1:
		return fmt.Sprintf("%.2f KB", kb)
	default:
		return fmt.Sprintf("%.2f bytes", b)
	}
}

// ContentURL resolves a short-lived direct URL for the document. Resolved
// fresh on every call; the stored book record carries only the blob ref.
func (p *Pipeline) ContentURL(ctx context.Context, ref string) (string, error) {
	url, err := p.blob.DownloadURL(ctx, ref, contentURLExpiry)
	if err != nil {
		return "", fmt.Errorf("resolve content url: %w", err)
	}
	return url, nil
}

// FetchFirstPagePreview fetches the document under the size ceiling and
// decodes a single-page preview with the total page count.
func (p *Pipeline) FetchFirstPagePreview(ctx context.Context, ref string) (Preview, error) {
	data, err := p.blob.GetBytes(ctx, ref, p.maxBytes)
	if err != nil {
		return Preview{}, fmt.Errorf("fetch preview: %w", err)
	}
	reader, err := utils.OpenPDF(data)
	if err != nil {
		return Preview{}, fmt.Errorf("fetch preview: %w", err)
	}
	return Preview{PageCount: reader.NumPage(), FirstPage: reader.Page(1)}, nil
}

// FetchFullDocument fetches the complete document bytes for the reading
// view, under the same size ceiling.
func (p *Pipeline) FetchFullDocument(ctx context.Context, ref string) ([]byte, error) {
	data, err := p.blob.GetBytes(ctx, ref, p.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	return data, nil
}

// DownloadAndPersist fetches the document, writes it into the downloads
// directory under a timestamp-derived name, and only then increments the
// book's download counter. On any failure before the file is on disk the
// counter is untouched and no file remains.
func (p *Pipeline) DownloadAndPersist(ctx context.Context, ref, bookID string) (string, error) {
	data, err := p.blob.GetBytes(ctx, ref, p.maxBytes)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	if err := os.MkdirAll(p.downloadsDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	name := fmt.Sprintf("%d.pdf", time.Now().UnixMilli())
	path := filepath.Join(p.downloadsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	if err := p.counters.IncrementDownloads(ctx, bookID); err != nil {
		// The file is saved; a failed count write is reported but does not
		// undo the download.
		log.Printf("delivery: download saved but count not incremented for %s: %v", bookID, err)
	}
	return path, nil
}
