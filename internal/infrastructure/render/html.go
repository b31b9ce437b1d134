package render

import (
	"fmt"
	"html/template"
	"io"

	"github.com/productsheet/backend/internal/domain"
)

var sheetTemplate = template.Must(template.New("product_sheet").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 900px; margin: 2em auto; }
.header { text-align: center; border-bottom: 2px solid #007bff; padding-bottom: 1em; margin-bottom: 2em; }
table { width: 100%; border-collapse: collapse; margin: 1em 0; }
th, td { text-align: left; padding: 0.4em; border-bottom: 1px solid #eee; }
.feature-list { list-style: none; padding: 0; }
.feature-list li { padding: 0.5em 0; border-bottom: 1px solid #eee; }
.certification-badge { display: inline-block; background: #28a745; color: white; padding: 0.3em 0.8em; border-radius: 15px; margin: 0.2em; font-size: 0.9em; }
</style>
</head>
<body>
<div class="header">
<h1>{{.Title}}</h1>
{{- if .Description}}
<p>{{.Description}}</p>
{{- end}}
</div>
{{- if .Identity}}
<h2>Informations générales</h2>
<table>
{{- range .Identity}}
<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Specs}}
<h2>Caractéristiques techniques</h2>
<table>
{{- range .Specs}}
<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Dimensions}}
<h2>Dimensions</h2>
<table>
{{- range .Dimensions}}
<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Features}}
<h2>Fonctionnalités</h2>
<ul class="feature-list">
{{- range .Features}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
{{- if .Certifications}}
<h2>Certifications</h2>
<div>
{{- range .Certifications}}
<span class="certification-badge">{{.}}</span>
{{- end}}
</div>
{{- end}}
</body>
</html>
`))

// HTML writes the product sheet as a standalone HTML page
func HTML(record domain.ProductRecord, w io.Writer) error {
	if err := sheetTemplate.Execute(w, newSheet(record)); err != nil {
		return fmt.Errorf("render html sheet: %w", err)
	}
	return nil
}
