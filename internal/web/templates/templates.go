// Package templates embeds the HTML templates of the board viewer.
package templates

import "embed"

//go:embed *.html
var FS embed.FS
