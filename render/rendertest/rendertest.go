// Package rendertest provides renderers and PDF fixtures for tests that
// cannot start a browser.
package rendertest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MinimalPDF builds a well-formed PDF with the given number of empty pages.
func MinimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int

	buf.WriteString("%PDF-1.4\n")
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Recorder is a Renderer that returns a fixed result and keeps the markup
// it was given. Block, when set, is received from before returning.
type Recorder struct {
	PDF   []byte
	Err   error
	Block chan struct{}

	mu    sync.Mutex
	calls [][]byte
}

// NewRecorder returns a Recorder producing a one page PDF.
func NewRecorder() *Recorder {
	return &Recorder{PDF: MinimalPDF(1)}
}

func (r *Recorder) Render(ctx context.Context, html []byte) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]byte(nil), html...))
	r.mu.Unlock()

	if r.Block != nil {
		select {
		case <-r.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return r.PDF, nil
}

// Calls returns the markup of every render so far.
func (r *Recorder) Calls() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.calls...)
}
