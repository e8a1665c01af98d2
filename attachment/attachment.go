// Package attachment checks uploaded images against the allowed types and
// size limit and encodes them as data URIs that the document can embed.
package attachment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
)

// MaxSize is the default per-attachment limit.
const MaxSize = 3 << 20

// Multipart part names for the two attachments.
const (
	FieldSchoolLogo   = "schoolLogo"
	FieldCatchmentMap = "catchmentMap"
)

// DefaultTypes are the image types accepted unless configured otherwise.
var DefaultTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/webp",
	"image/svg+xml",
}

// Registry holds the accepted media types and the size limit.
type Registry struct {
	mu      sync.RWMutex
	types   map[string]bool
	maxSize int64
}

// NewRegistry creates a registry accepting types up to maxSize bytes. A
// non-positive maxSize uses MaxSize.
func NewRegistry(maxSize int64, types ...string) *Registry {
	if maxSize <= 0 {
		maxSize = MaxSize
	}
	r := &Registry{types: make(map[string]bool), maxSize: maxSize}
	for _, t := range types {
		r.Register(t)
	}
	return r
}

// DefaultRegistry accepts DefaultTypes up to MaxSize.
func DefaultRegistry() *Registry {
	return NewRegistry(MaxSize, DefaultTypes...)
}

// Register adds an accepted media type.
func (r *Registry) Register(mediaType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[normalize(mediaType)] = true
}

// Types returns the accepted media types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MaxSize returns the per-attachment limit in bytes.
func (r *Registry) MaxSize() int64 { return r.maxSize }

// Check validates a declared media type and size for field.
func (r *Registry) Check(field, contentType string, size int64) error {
	mediaType := normalize(contentType)
	r.mu.RLock()
	ok := r.types[mediaType]
	r.mu.RUnlock()
	if !ok {
		return &Error{Field: field, Kind: KindType, err: fmt.Errorf("%w %q, allowed: %s",
			ErrUnsupportedType, contentType, strings.Join(r.Types(), ", "))}
	}
	if size > r.maxSize {
		return &Error{Field: field, Kind: KindSize, err: fmt.Errorf("%w: %d bytes exceeds %d",
			ErrTooLarge, size, r.maxSize)}
	}
	return nil
}

// Encode checks data and returns it as a data URI.
func (r *Registry) Encode(field, contentType string, data []byte) (string, error) {
	if err := r.Check(field, contentType, int64(len(data))); err != nil {
		return "", err
	}
	return "data:" + normalize(contentType) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Read consumes at most one byte past the limit from src and encodes it.
// The type is checked before anything is read.
func (r *Registry) Read(field, contentType string, src io.Reader) (string, error) {
	if err := r.Check(field, contentType, 0); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(src, r.maxSize+1)); err != nil {
		return "", &Error{Field: field, Kind: KindRead, err: fmt.Errorf("read attachment: %w", err)}
	}
	return r.Encode(field, contentType, buf.Bytes())
}

// FromFileHeader opens an uploaded multipart file and encodes it.
func (r *Registry) FromFileHeader(field string, fh *multipart.FileHeader) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if err := r.Check(field, contentType, fh.Size); err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", &Error{Field: field, Kind: KindRead, err: fmt.Errorf("open attachment: %w", err)}
	}
	defer f.Close()
	return r.Read(field, contentType, f)
}

func normalize(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// Kind classifies an attachment rejection.
type Kind string

const (
	KindType Kind = "type"
	KindSize Kind = "size"
	KindRead Kind = "read"
)

var (
	ErrUnsupportedType = errors.New("unsupported attachment type")
	ErrTooLarge        = errors.New("attachment too large")
)

// Error is a request-level attachment rejection.
type Error struct {
	Field string
	Kind  Kind
	err   error
}

func (e *Error) Error() string {
	return e.Field + ": " + e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

// IsAttachment reports whether err is an attachment rejection.
func IsAttachment(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}
