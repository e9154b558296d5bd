// Package loader opens and parses one structured document under a size and time budget.
package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/beevik/etree"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/document"
)

// Defaults for Options.
const (
	DefaultMaxBytes = 64 << 20
	DefaultTimeout  = 30 * time.Second
	readBufSize     = 64 * 1024
)

// Options bounds a single load.
type Options struct {
	// MaxBytes rejects larger documents before reading them. <= 0 uses DefaultMaxBytes.
	MaxBytes int64
	// Timeout bounds read and parse of one document. <= 0 uses DefaultTimeout.
	Timeout time.Duration
}

// Loader parses documents into element trees.
type Loader struct {
	maxBytes int64
	timeout  time.Duration
}

// New creates a Loader.
func New(opts Options) *Loader {
	l := &Loader{maxBytes: opts.MaxBytes, timeout: opts.Timeout}
	if l.maxBytes <= 0 {
		l.maxBytes = DefaultMaxBytes
	}
	if l.timeout <= 0 {
		l.timeout = DefaultTimeout
	}
	return l
}

// MaxBytes returns the effective size limit.
func (l *Loader) MaxBytes() int64 { return l.maxBytes }

// Load parses the document behind h.
// Fails with *domain.ResourceLimitError when the document exceeds the size limit or the timeout,
// and with *domain.ParseError when it cannot be read or is not well-formed.
// Parent context cancellation is returned as is, so callers can stop the batch.
func (l *Loader) Load(ctx context.Context, h document.Handle) (*etree.Document, error) {
	if h.Size > l.maxBytes {
		return nil, domain.NewResourceLimitError(h, fmt.Sprintf("size %d exceeds %d bytes", h.Size, l.maxBytes), nil)
	}

	f, err := os.Open(h.Path)
	if err != nil {
		return nil, domain.NewParseError(h, fmt.Errorf("open: %w", err))
	}
	defer f.Close()

	loadCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	// The file may have grown since it was listed; read one byte past the limit to notice.
	lr := &limitedReader{r: f, remaining: l.maxBytes + 1}
	r := bufio.NewReaderSize(&ctxReader{ctx: loadCtx, r: lr}, readBufSize)

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded) || loadCtx.Err() != nil:
			return nil, domain.NewResourceLimitError(h, fmt.Sprintf("timeout %s", l.timeout), context.DeadlineExceeded)
		case lr.exceeded():
			return nil, domain.NewResourceLimitError(h, fmt.Sprintf("content exceeds %d bytes", l.maxBytes), nil)
		default:
			return nil, domain.NewParseError(h, err)
		}
	}
	if lr.exceeded() {
		return nil, domain.NewResourceLimitError(h, fmt.Sprintf("content exceeds %d bytes", l.maxBytes), nil)
	}
	switch roots := len(doc.ChildElements()); roots {
	case 1:
		return doc, nil
	case 0:
		return nil, domain.NewParseError(h, errors.New("no root element"))
	default:
		return nil, domain.NewParseError(h, fmt.Errorf("%d root elements, want 1", roots))
	}
}

// ctxReader fails reads once the context is done, aborting a slow parse mid-stream.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

type limitedReader struct {
	r         io.Reader
	remaining int64
	over      bool
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.remaining <= 0 {
		lr.over = true
		return 0, errContentTooLarge
	}
	if int64(len(p)) > lr.remaining {
		p = p[:lr.remaining]
	}
	n, err := lr.r.Read(p)
	lr.remaining -= int64(n)
	if lr.remaining <= 0 {
		lr.over = true
		return n, errContentTooLarge
	}
	return n, err
}

func (lr *limitedReader) exceeded() bool { return lr.over }

var errContentTooLarge = errors.New("content too large")
