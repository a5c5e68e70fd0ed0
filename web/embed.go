// Package web bundles the dashboard templates and static assets into the binary.
package web

import "embed"

var (
	// Templates holds layouts, partials and pages under templates/.
	//go:embed templates
	Templates embed.FS

	// Static holds the stylesheets served under /static/.
	//go:embed static
	Static embed.FS
)
