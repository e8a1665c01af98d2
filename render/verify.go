package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// ErrNotPDF is wrapped when renderer output is not a readable PDF.
var ErrNotPDF = errors.New("output is not a PDF")

// Verify parses renderer output and returns its page count. A document with
// no pages fails.
func Verify(content []byte) (pages int, err error) {
	if !bytes.HasPrefix(content, pdfMagic) {
		return 0, &Error{Op: "verify", err: ErrNotPDF}
	}

	// The parser panics on some malformed cross reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, &Error{Op: "verify", err: fmt.Errorf("%w: %v", ErrNotPDF, r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, &Error{Op: "verify", err: fmt.Errorf("%w: %v", ErrNotPDF, err)}
	}
	pages = reader.NumPage()
	if pages == 0 {
		return 0, &Error{Op: "verify", err: fmt.Errorf("%w: no pages", ErrNotPDF)}
	}
	return pages, nil
}
