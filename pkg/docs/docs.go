// Package docs serves the embedded help topics: longer-form documentation
// that does not fit into command help strings.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
)

//go:embed topics/*.md
var topicsFS embed.FS

// Names returns the available topic names, sorted.
func Names() []string {
	entries, err := fs.ReadDir(topicsFS, "topics")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".md"))
	}
	sort.Strings(names)
	return names
}

// Render returns a topic's content. When styled, the markdown is rendered
// for the terminal; rendering failures fall back to the raw source rather
// than hiding the topic.
func Render(name string, styled bool) (string, error) {
	raw, err := topicsFS.ReadFile("topics/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("unknown topic %q (see: %s)", name, strings.Join(Names(), ", "))
	}

	if !styled {
		return string(raw), nil
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return string(raw), nil
	}
	rendered, err := renderer.Render(string(raw))
	if err != nil {
		return string(raw), nil
	}
	return rendered, nil
}
