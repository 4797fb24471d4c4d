package report

import (
	"bytes"
	"fmt"
	"html/template"
)

var funcMap = template.FuncMap{
	"kwh": formatKWh,
	"header": Header,
	"date": func(d *Document) string {
		return d.Generated.Format("2006-01-02 15:04")
	},
}

const documentTmpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #1f2937; margin: 24px; }
h1 { color: #10b981; font-size: 22px; text-align: center; margin: 0 0 16px; }
h2 { font-size: 14px; border-bottom: 1px solid #1f2937; padding-bottom: 2px; margin: 18px 0 8px; }
.customer { font-size: 14px; margin: 0; }
.contact { font-size: 10px; margin: 4px 0 0; }
.summary { display: flex; font-size: 12px; }
.summary div { width: 50%; }
.cost { color: #ef4444; }
table { width: 100%; border-collapse: collapse; font-size: 8px; }
th { background: #1f2937; color: #fff; text-align: left; padding: 4px; }
td { padding: 4px; }
tr:nth-child(even) td { background: #f3f4f6; }
footer { font-size: 8px; color: #6b7280; margin-top: 12px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="customer">Customer: {{.Customer.CustomerName}}</p>
<p class="contact">Email: {{.Customer.EmailID}} | Phone: {{.Phone}}</p>

<h2>Consumption Summary</h2>
<div class="summary">
<div>Total Energy Consumed (All Time): {{kwh .TotalKWh}} kWh</div>
<div class="cost">Total Estimated Cost (All Time): {{.Money .TotalCost}}</div>
</div>

<h2>Detailed Application Usage Log</h2>
<table>
<thead><tr>{{range header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range $.Cells .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
<footer>Generated {{date .}}</footer>
</body>
</html>
`

var documentTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(documentTmpl))

// RenderHTML renders the printable HTML form of a document
func RenderHTML(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("executing report template: %w", err)
	}
	return buf.String(), nil
}
