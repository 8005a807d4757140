package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

type callToAction struct {
	Href  string
	Label string
}

type templateData struct {
	Title       string
	Intro       string
	ContentHTML template.HTML
	CTA         *callToAction
	Footer      string
	Year        int
}

var baseTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1.0"/>
    <title>{{.Title}}</title>
  </head>
  <body style="margin:0;padding:24px;background:#fdf6f8;font-family:'Poppins',system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;color:#8d7b8d;">
    <table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="max-width:640px;margin:0 auto;background:#fff0f0;border:2px solid #b18597;border-radius:18px;box-shadow:0 12px 24px rgba(177,133,151,.18);">
      <tr>
        <td style="padding:32px;">
          <div style="display:flex;align-items:center;gap:16px;margin-bottom:16px;">
            <div style="width:46px;height:46px;display:grid;place-items:center;background:#f9c4d2;border:2px solid #b18597;border-radius:14px;box-shadow:0 .5em 0 0 #ffe3e2;color:#a192a1;font-weight:700;">&#9788;</div>
            <h1 style="margin:0;font-size:24px;color:#8d7b8d;">{{.Title}}</h1>
          </div>
          <p style="margin:0 0 18px;line-height:1.6;">{{.Intro}}</p>
          <div style="line-height:1.7;font-size:16px;color:#9a879a;">{{.ContentHTML}}</div>
          {{- if .CTA}}
          <div style="margin:24px 0;">
            <a href="{{.CTA.Href}}"
               style="display:inline-block;padding:12px 20px;border:2px solid #b18597;border-radius:12px;background:#fff0f0;color:#8d7b8d;font-weight:600;text-decoration:none;box-shadow:0 .4em 0 0 #ffe3e2;">
              {{.CTA.Label}}
            </a>
          </div>
          {{- end}}
          <p style="margin-top:24px;line-height:1.6;color:#9a879a;">{{.Footer}}</p>
        </td>
      </tr>
    </table>
    <p style="margin:18px auto 0;text-align:center;font-size:13px;color:#b29ead;">&copy; {{.Year}} TheSweetBaker Co.</p>
  </body>
</html>`))

func buildHTMLTemplate(data templateData) (string, error) {
	if data.Title == "" {
		data.Title = "TheSweetBaker Co."
	}
	if data.Footer == "" {
		data.Footer = "Sweet regards, TheSweetBaker Co."
	}
	data.Year = time.Now().Year()

	buf := new(bytes.Buffer)
	if err := baseTemplate.Execute(buf, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return buf.String(), nil
}
