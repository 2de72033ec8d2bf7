// Package web embeds the HTML templates and static assets so the server
// binary runs from any working directory.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates holds base.html plus one file per page.
func Templates() fs.FS {
	return mustSub("templates")
}

// Static is served under /static/.
func Static() fs.FS {
	return mustSub("static")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic("web: " + err.Error())
	}
	return sub
}
