package appfs

import "embed"

// FS embeds the app's static files: database migrations and email templates.
//
//go:embed migrations all:assets
var FS embed.FS
