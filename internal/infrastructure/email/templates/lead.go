package templates

import (
	"bytes"
	"html/template"
)

// LeadProps is the data shown in a hot-lead alert.
type LeadProps struct {
	Name        string
	Email       string
	Phone       string
	Company     string
	ProductType string
	Quantity    int64
	Source      string
	Score       int
	Status      string
}

var leadTemplate = template.Must(template.New("lead").Parse(`
<h2 style="margin:0 0 16px;">سرنخ جدید: {{.Name}}</h2>
<p style="margin:0 0 12px;">امتیاز <strong>{{.Score}}</strong> ({{.Status}})</p>
<table role="presentation" cellpadding="4" cellspacing="0">
  {{if .Company}}<tr><td>شرکت</td><td>{{.Company}}</td></tr>{{end}}
  {{if .Email}}<tr><td>ایمیل</td><td>{{.Email}}</td></tr>{{end}}
  {{if .Phone}}<tr><td>تلفن</td><td>{{.Phone}}</td></tr>{{end}}
  {{if .ProductType}}<tr><td>محصول</td><td>{{.ProductType}}</td></tr>{{end}}
  {{if .Quantity}}<tr><td>تیراژ</td><td>{{.Quantity}}</td></tr>{{end}}
  {{if .Source}}<tr><td>منبع</td><td>{{.Source}}</td></tr>{{end}}
</table>`))

// LeadContent renders the body of a lead alert.
func LeadContent(props LeadProps) (string, error) {
	var buf bytes.Buffer
	if err := leadTemplate.Execute(&buf, props); err != nil {
		return "", err
	}
	return buf.String(), nil
}
