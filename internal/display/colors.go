package display

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Palette groups the colors the renderer uses. When color is unsupported
// every entry degrades to plain text.
type Palette struct {
	Heading *color.Color
	Success *color.Color
	Failure *color.Color
	Muted   *color.Color
	Accent  *color.Color
}

// NewPalette builds the default palette, honoring terminal capabilities and
// the NO_COLOR convention. forcePlain disables color unconditionally.
func NewPalette(forcePlain bool) *Palette {
	if forcePlain || !detectColorSupport() {
		color.NoColor = true
	}

	return &Palette{
		Heading: color.New(color.FgCyan, color.Bold),
		Success: color.New(color.FgGreen),
		Failure: color.New(color.FgRed, color.Bold),
		Muted:   color.New(color.FgHiBlack),
		Accent:  color.New(color.FgYellow),
	}
}

// detectColorSupport checks whether stdout is a color-capable terminal.
func detectColorSupport() bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}

	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	return termenv.ColorProfile() != termenv.Ascii
}
