// Package markdownx renders TIL markdown for the read-side preview surface.
package markdownx

import (
	"bytes"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// RenderHTML converts a sanitized markdown body to HTML. Input is expected
// to have passed the security filter already; this function does no
// sanitization of its own.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
