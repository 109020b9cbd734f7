// Package source obtains the raw bytes glyphpack encodes, either from a local
// path or over HTTP.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/RowanDark/glyphpack/internal/redact"
)

// ErrFetch matches every *FetchError with errors.Is.
var ErrFetch = errors.New("fetch failed")

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 64 << 20
)

// Source yields the bytes to encode.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Ref describes where the bytes come from, safe to log.
	Ref() string
}

// FetchError reports a source that could not be read.
type FetchError struct {
	Ref string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Ref, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// IsRemote reports whether ref names an HTTP resource.
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Open returns the Source for ref: HTTP for http(s) URLs, a local file
// otherwise.
func Open(ref string, opts ...Option) (Source, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, errors.New("source reference cannot be empty")
	}
	if IsRemote(ref) {
		return NewHTTP(ref, opts...)
	}
	return File{Path: ref}, nil
}

// File reads a local path.
type File struct {
	Path string
}

func (f File) Ref() string { return f.Path }

func (f File) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Ref: f.Path, Err: err}
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &FetchError{Ref: f.Path, Err: fmt.Errorf("file not found: %w", err)}
		}
		return nil, &FetchError{Ref: f.Path, Err: err}
	}
	return data, nil
}

// Bytes is an in-memory source, used when the caller already holds the data.
type Bytes struct {
	Name string
	Data []byte
}

func (b Bytes) Ref() string { return b.Name }

func (b Bytes) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Ref: b.Name, Err: err}
	}
	return b.Data, nil
}

func safeRef(ref string) string {
	return redact.Ref(ref)
}
