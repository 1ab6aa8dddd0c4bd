package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/bun-ready/bun-ready/pkg/analyzer"
)

// Supported report formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatSARIF    = "sarif"
)

// Formats lists the accepted --format values.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatMarkdown, FormatSARIF}
}

// Render writes the report in the requested format. An unknown format
// is a usage error, surfaced before any scanning happens.
func Render(w io.Writer, format string, result analyzer.Result, color bool) error {
	switch format {
	case FormatText:
		return RenderText(w, result, color)
	case FormatJSON:
		return RenderJSON(w, result)
	case FormatMarkdown:
		return RenderMarkdown(w, result)
	case FormatSARIF:
		return RenderSARIF(w, result)
	default:
		return fmt.Errorf("unknown format %q (expected one of %v)", format, Formats())
	}
}

// ValidFormat reports whether format names a renderer.
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatMarkdown, FormatSARIF:
		return true
	}
	return false
}

// ShouldColor decides whether the text renderer may emit ANSI colors:
// only on a real terminal and only when the user did not opt out.
func ShouldColor(f *os.File, noColor bool) bool {
	if noColor || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
