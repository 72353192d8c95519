// Package render prints slash command output to a terminal.
package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kznrluk/jina-reader/internal/app"
)

var labelStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("212")).
	Padding(0, 1)

// Options controls how output is printed.
type Options struct {
	// Pretty renders each section as Markdown under its label. Otherwise the
	// text is written verbatim.
	Pretty bool
	// Width is the word-wrap width for pretty output; 0 means 80.
	Width int
	// Style is a glamour standard style name; empty selects one from the
	// terminal background.
	Style string
}

// Write prints out to w according to opts.
func Write(w io.Writer, out app.Output, opts Options) error {
	if !opts.Pretty {
		_, err := io.WriteString(w, out.Text)
		return err
	}

	width := opts.Width
	if width <= 0 {
		width = 80
	}
	style := glamour.WithAutoStyle()
	if opts.Style != "" {
		style = glamour.WithStandardStyle(opts.Style)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}

	for _, sec := range out.Sections {
		if _, err := fmt.Fprintln(w, labelStyle.Render(sec.Label)); err != nil {
			return err
		}
		md, err := r.Render(slice(out.Text, sec.Range))
		if err != nil {
			return fmt.Errorf("render section %q: %w", sec.Label, err)
		}
		if _, err := io.WriteString(w, md); err != nil {
			return err
		}
	}
	return nil
}

// slice returns the part of text covered by rg, clamped to text's bounds.
func slice(text string, rg app.Range) string {
	start := min(max(rg.Start, 0), len(text))
	end := min(max(rg.End, start), len(text))
	return text[start:end]
}
