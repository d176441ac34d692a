package api

import "embed"

//go:embed static/index.html
var apiStaticFS embed.FS
