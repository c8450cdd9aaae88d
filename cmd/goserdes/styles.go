package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// styles colors command output when stdout is a terminal.
type styles struct {
	kind    func(a ...any) string
	ok      func(a ...any) string
	bad     func(a ...any) string
	removed func(a ...any) string
	added   func(a ...any) string
}

func newStyles(w io.Writer) styles {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return styles{
		kind:    mk(color.FgCyan, color.Bold),
		ok:      mk(color.FgGreen),
		bad:     mk(color.FgRed, color.Bold),
		removed: mk(color.FgRed),
		added:   mk(color.FgGreen),
	}
}
