// Package web provides the embedded plugin manifest and OpenAPI document.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFiles embed.FS

// StaticFS contains spec.json and ai-plugin.json at its root.
var StaticFS, _ = fs.Sub(staticFiles, "static")
