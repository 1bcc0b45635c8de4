// Package resources embeds the default pass template.
package resources

import (
	"embed"
	"io/fs"
)

//go:embed template
var templateFS embed.FS

// Template returns the embedded template tree rooted at its top directory.
func Template() fs.FS {
	sub, err := fs.Sub(templateFS, "template")
	if err != nil {
		panic(err)
	}

	return sub
}
