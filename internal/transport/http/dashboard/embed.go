package dashboardhttp

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"pnlClass": func(profitable bool) string {
		if profitable {
			return "win"
		}
		return "loss"
	},
}
