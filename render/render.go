// Package render turns a standalone HTML page into a paginated PDF.
package render

import (
	"context"
	"errors"
	"fmt"
)

// Renderer converts markup into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html []byte) ([]byte, error)
}

// Func adapts a function to the Renderer interface.
type Func func(ctx context.Context, html []byte) ([]byte, error)

// Render calls f.
func (f Func) Render(ctx context.Context, html []byte) ([]byte, error) {
	return f(ctx, html)
}

const mmPerInch = 25.4

// PageSpec is the physical page layout in millimetres.
type PageSpec struct {
	WidthMM  float64 `yaml:"width_mm" json:"width_mm"`
	HeightMM float64 `yaml:"height_mm" json:"height_mm"`

	MarginTopMM    float64 `yaml:"margin_top_mm" json:"margin_top_mm"`
	MarginRightMM  float64 `yaml:"margin_right_mm" json:"margin_right_mm"`
	MarginBottomMM float64 `yaml:"margin_bottom_mm" json:"margin_bottom_mm"`
	MarginLeftMM   float64 `yaml:"margin_left_mm" json:"margin_left_mm"`
}

// A4 is portrait A4 with 20mm top and bottom and 15mm side margins.
func A4() PageSpec {
	return PageSpec{
		WidthMM:        210,
		HeightMM:       297,
		MarginTopMM:    20,
		MarginRightMM:  15,
		MarginBottomMM: 20,
		MarginLeftMM:   15,
	}
}

// Validate checks that the content area is positive.
func (p PageSpec) Validate() error {
	if p.WidthMM <= 0 || p.HeightMM <= 0 {
		return fmt.Errorf("page size must be positive, got %.1fx%.1fmm", p.WidthMM, p.HeightMM)
	}
	for _, m := range []float64{p.MarginTopMM, p.MarginRightMM, p.MarginBottomMM, p.MarginLeftMM} {
		if m < 0 {
			return fmt.Errorf("margins must not be negative")
		}
	}
	if p.MarginLeftMM+p.MarginRightMM >= p.WidthMM || p.MarginTopMM+p.MarginBottomMM >= p.HeightMM {
		return fmt.Errorf("margins leave no printable area")
	}
	return nil
}

func inches(mm float64) float64 {
	return mm / mmPerInch
}

// Error is a failure from the rendering backend. It is never retried.
type Error struct {
	Op  string
	err error
}

// NewError wraps err as a renderer failure.
func NewError(op string, err error) error {
	return &Error{Op: op, err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: %v", e.Op, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// IsRender reports whether err came from the renderer.
func IsRender(err error) bool {
	var re *Error
	return errors.As(err, &re)
}
