package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/aguntuk/jobora/internal/model"
)

// MatchedJob pairs a job with its match score and keywords for rendering.
type MatchedJob struct {
	Job      model.JobRecord
	Score    float64
	Keywords []string
}

// pct formats a [0,1] score as a whole percentage.
func pct(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

var templateFuncs = map[string]any{
	"pct":  pct,
	"join": strings.Join,
}

const emailHTMLText = `<h2>New job matches for you</h2>
<ul>
{{range .Jobs}}<li>
  <a href="{{.Job.SourceURL}}"><strong>{{.Job.Title}}</strong></a> at {{.Job.Company}}
  {{if .Job.Location}}({{.Job.Location}}){{end}}<br>
  Match score: {{pct .Score}}{{if .Keywords}} &mdash; matched: {{join .Keywords ", "}}{{end}}
</li>
{{end}}</ul>
`

const emailTextText = `New job matches for you:

{{range .Jobs}}- {{.Job.Title}} at {{.Job.Company}}{{if .Job.Location}} ({{.Job.Location}}){{end}}
  score {{pct .Score}}{{if .Keywords}}, matched: {{join .Keywords ", "}}{{end}}
  {{.Job.SourceURL}}
{{end}}`

var (
	emailHTMLTemplate = htmltemplate.Must(htmltemplate.New("email_html").Funcs(templateFuncs).Parse(emailHTMLText))
	emailTextTemplate = texttemplate.Must(texttemplate.New("email_text").Funcs(templateFuncs).Parse(emailTextText))
)

// renderEmail produces the subject, HTML body and plain-text body for one
// batch of matched jobs.
func renderEmail(jobs []MatchedJob) (subject, html, text string, err error) {
	subject = fmt.Sprintf("%d new job match", len(jobs))
	if len(jobs) != 1 {
		subject += "es"
	}

	data := struct{ Jobs []MatchedJob }{Jobs: jobs}

	var htmlBuf bytes.Buffer
	if err := emailHTMLTemplate.Execute(&htmlBuf, data); err != nil {
		return "", "", "", fmt.Errorf("render email html: %w", err)
	}
	var textBuf bytes.Buffer
	if err := emailTextTemplate.Execute(&textBuf, data); err != nil {
		return "", "", "", fmt.Errorf("render email text: %w", err)
	}
	return subject, htmlBuf.String(), textBuf.String(), nil
}

// renderPush produces the title, body and deep link for a push payload.
// Single matches deep-link to the job; batches link to the matches page.
func renderPush(jobs []MatchedJob, baseURL string) (title, body, url string) {
	if len(jobs) == 1 {
		j := jobs[0].Job
		return "New job match", fmt.Sprintf("%s at %s", j.Title, j.Company), j.SourceURL
	}
	return "New job matches",
		fmt.Sprintf("%d new jobs match your alert", len(jobs)),
		baseURL + "/matches"
}

const smsMaxLen = 160

// renderSMS produces a short text naming the top match.
func renderSMS(jobs []MatchedJob) string {
	j := jobs[0].Job
	msg := fmt.Sprintf("Jobora: %s at %s", j.Title, j.Company)
	if len(jobs) > 1 {
		msg += fmt.Sprintf(" and %d more matches", len(jobs)-1)
	}
	if len(msg) > smsMaxLen {
		msg = msg[:smsMaxLen-3] + "..."
	}
	return msg
}
