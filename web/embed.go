// Package web embeds the gallery tab: the static page the WebUI loads
// in an iframe next to its own tabs.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var assets embed.FS

// FS returns the tab's static files rooted at the dist directory.
func FS() (fs.FS, error) {
	return fs.Sub(assets, "dist")
}
