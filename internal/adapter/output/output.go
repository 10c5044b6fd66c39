// Package output maps format names to document renderers and persists the
// rendered documents. Each format lives in its own subpackage; all of them
// emit the same logical content in the same order, differing only in
// decoration and escaping.
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prdump/prdump/internal/adapter/output/html"
	"github.com/prdump/prdump/internal/adapter/output/markdown"
	"github.com/prdump/prdump/internal/adapter/output/text"
	"github.com/prdump/prdump/internal/domain"
)

// Format is the canonical name of a supported output format. It doubles as
// the file extension of the rendered document.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ErrUnsupportedFormat reports a format no renderer is registered for.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Renderer turns an archive into one complete document.
type Renderer interface {
	Render(archive domain.Archive) (string, error)
}

// Formats lists the supported format names in display order.
func Formats() []string {
	return []string{string(FormatText), string(FormatMarkdown), string(FormatHTML)}
}

// Parse normalizes a format name to its canonical form. It accepts the
// canonical names plus the common aliases "text" and "markdown", with any
// surrounding whitespace, case noise, or a leading dot.
func Parse(name string) (Format, error) {
	cleaned := strings.ToLower(strings.TrimSpace(name))
	cleaned = strings.TrimPrefix(cleaned, ".")
	switch cleaned {
	case "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, name, strings.Join(Formats(), ", "))
	}
}

// For resolves a format name to its renderer.
func For(name string) (Renderer, error) {
	format, err := Parse(name)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatText:
		return text.NewRenderer(), nil
	case FormatMarkdown:
		return markdown.NewRenderer(), nil
	case FormatHTML:
		return html.NewRenderer(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}
