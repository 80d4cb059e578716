package cmd

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders markdown for the terminal, or returns it as is when
// it cannot be rendered.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func printMarkdown(md string) { fmt.Print(renderMarkdown(md)) }
