package main

import (
	"io"
	"os"

	"chatterm/cmd/chatterm/ui"

	"golang.org/x/term"
)

const defaultOutputWidth = 80

// outputFormat picks the markdown style and width for printing to w. Output
// that is not a terminal gets plain text.
func outputFormat(w io.Writer) (style string, width int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "notty", defaultOutputWidth
	}

	width = defaultOutputWidth
	if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
		width = tw
	}
	return ui.ThemeFor(cfg.UI.Theme).GlamourStyle(), width
}

// applyWordWrap caps width at the configured word wrap.
func applyWordWrap(width int) int {
	if cfg != nil && cfg.UI.WordWrap > 0 && width > cfg.UI.WordWrap {
		return cfg.UI.WordWrap
	}
	return width
}
