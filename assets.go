// Package storefrontgate provides embedded page templates for production builds.
package storefrontgate

import "embed"

// Embedded templates for production builds.
// In dev mode (IsDev=true), templates are loaded from disk for hot reloading.

//go:embed all:web/templates
var TemplateFS embed.FS
