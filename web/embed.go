// Package web embeds the browser client: one HTML page per screen plus
// its stylesheet and script.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// Static returns the site rooted at the static directory, so "login.html"
// and "js/main.js" resolve directly.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
