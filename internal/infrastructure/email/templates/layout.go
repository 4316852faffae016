// Package templates renders the notification emails.
package templates

import (
	"bytes"
	"html/template"
)

// LayoutProps wraps rendered content in the shared email shell.
type LayoutProps struct {
	Preheader string
	Content   string
	SiteName  string
}

type layoutData struct {
	Preheader string
	Content   template.HTML
	SiteName  string
}

var layoutTemplate = template.Must(template.New("layout").Parse(`<!doctype html>
<html dir="rtl">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>{{.SiteName}}</title>
  </head>
  <body style="background-color:#f4f5f6;font-family:Tahoma,Helvetica,sans-serif;font-size:15px;margin:0;padding:0;">
    <span style="display:none;max-height:0;overflow:hidden;">{{.Preheader}}</span>
    <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="padding:24px;">
      <tr>
        <td style="background:#ffffff;border:1px solid #eaebed;border-radius:12px;padding:24px;">
          {{.Content}}
        </td>
      </tr>
      <tr>
        <td style="color:#9a9ea6;font-size:12px;padding-top:12px;text-align:center;">{{.SiteName}}</td>
      </tr>
    </table>
  </body>
</html>`))

// Layout renders props into the email shell. Content must already be safe HTML.
func Layout(props LayoutProps) (string, error) {
	if props.SiteName == "" {
		props.SiteName = "Intentstack"
	}
	var buf bytes.Buffer
	err := layoutTemplate.Execute(&buf, layoutData{
		Preheader: props.Preheader,
		Content:   template.HTML(props.Content),
		SiteName:  props.SiteName,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
