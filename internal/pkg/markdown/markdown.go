package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
		extension.Strikethrough,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

// Render converts markdown text to HTML. Log entries and problem report
// descriptions accept plain text too; goldmark passes that through.
func Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
