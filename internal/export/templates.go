package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var sheetTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/sheet.html")
	if err != nil {
		// Fallback to built-in template if file not found
		sheetTemplate = template.Must(template.New("sheet").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	sheetTemplate = template.Must(template.New("sheet").Funcs(funcMap).Parse(string(templateContent)))
}

// RenderSheetHTML renders the gear sheet template with provided data.
func RenderSheetHTML(data SheetData) (string, error) {
	var buf bytes.Buffer
	if err := sheetTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #08BFA0; padding-bottom: 0.5rem; }
    h2 { color: #08BFA0; margin-top: 1.5rem; }
    .meta { color: #666; font-size: 0.9em; }
    table { width: 100%; border-collapse: collapse; }
    td, th { border: 1px solid #ddd; padding: 0.4rem; text-align: left; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">{{.Subtitle}} | {{.GeneratedAt.Format "2006-01-02 15:04"}}</div>
  {{range .Sections}}
  <h2>{{.Icon}} {{.Name}}</h2>
  <table>
    {{range .Items}}
    <tr>
      <th>{{.Name}}{{if .Quota}} ({{.Quota}}){{end}}</th>
      <td>{{range .Claims}}{{.UserName}}{{if .Note}}（{{.Note}}）{{end}} {{end}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}
</body>
</html>`
