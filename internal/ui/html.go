package ui

import (
	"context"
	"fmt"
	"io"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
)

// Class merges tailwind classes, later ones winning on conflicts.
func Class(classes ...string) string {
	return twmerge.Merge(classes...)
}

// Writer collects the first write error so components can emit markup linearly.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup.
func (w *Writer) Raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

// Rawf formats trusted markup. Arguments are escaped.
func (w *Writer) Rawf(format string, args ...any) {
	escaped := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			escaped[i] = templ.EscapeString(v)
		default:
			escaped[i] = templ.EscapeString(fmt.Sprint(v))
		}
	}
	w.Raw(fmt.Sprintf(format, escaped...))
}

// Text writes escaped text.
func (w *Writer) Text(s string) {
	w.Raw(templ.EscapeString(s))
}

// Component renders a child component into the same stream.
func (w *Writer) Component(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

func (w *Writer) Err() error {
	return w.err
}
