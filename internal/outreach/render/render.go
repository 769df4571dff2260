// Package render builds the subject and HTML body of outreach emails.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/smallbiznis/outreach/internal/config"
	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templatesFS embed.FS

const customTemplateName = "custom"

var templateNames = map[signupdomain.Stage]string{
	signupdomain.StageInvite:   "invite.html",
	signupdomain.StageFollowUp: "followup.html",
}

type Content struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Vars are the per-signup inputs to a message.
type Vars struct {
	FirstName     string
	Credits       int64
	ReferralCount int64
}

// Overrides replace the configured copy for one batch.
type Overrides struct {
	Subject string
	Body    *htmltemplate.Template
}

// Data is what subject and body templates see.
type Data struct {
	Greeting      string
	FirstName     string
	Credits       string
	ReferralCount int64
	ProductName   string
	Brand         config.BrandSettings
}

type Renderer struct {
	templates *htmltemplate.Template
	printer   *message.Printer
}

func New() (*Renderer, error) {
	templates, err := htmltemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{
		templates: templates,
		printer:   message.NewPrinter(language.English),
	}, nil
}

// ParseBody compiles a caller supplied body. It may use the built-in
// "signature" block and the bare {{greeting}}, {{firstName}} and {{credits}}
// placeholders of older custom copy.
func (r *Renderer) ParseBody(src string) (*htmltemplate.Template, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("template is empty")
	}
	clone, err := r.templates.Clone()
	if err != nil {
		return nil, err
	}
	return clone.New(customTemplateName).Funcs(placeholders(Data{})).Parse(src)
}

// placeholders are rebound to each signup before a custom body executes.
func placeholders(data Data) htmltemplate.FuncMap {
	return htmltemplate.FuncMap{
		"greeting":  func() string { return data.Greeting },
		"firstName": func() string { return data.FirstName },
		"credits":   func() string { return data.Credits },
	}
}

func (r *Renderer) Render(stage signupdomain.Stage, settings config.OutreachSettings, vars Vars, o Overrides) (Content, error) {
	name, ok := templateNames[stage]
	if !ok {
		return Content{}, signupdomain.ErrInvalidStage
	}

	data := Data{
		Greeting:      Greeting(stage, vars.FirstName),
		FirstName:     strings.TrimSpace(vars.FirstName),
		Credits:       r.FormatNumber(vars.Credits),
		ReferralCount: vars.ReferralCount,
		ProductName:   settings.Brand.ProductName,
		Brand:         settings.Brand,
	}

	subjectSrc := strings.TrimSpace(o.Subject)
	if subjectSrc == "" {
		subjectSrc = subjectFor(stage, settings)
	}
	subject, err := renderSubject(subjectSrc, data)
	if err != nil {
		return Content{}, err
	}

	tmpl := r.templates
	if o.Body != nil {
		// o.Body is shared by the whole batch and stays unexecuted
		bound, err := o.Body.Clone()
		if err != nil {
			return Content{}, err
		}
		tmpl, name = bound.Funcs(placeholders(data)), customTemplateName
	}
	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, name, data); err != nil {
		return Content{}, fmt.Errorf("render %s body: %w", stage, err)
	}

	return Content{Subject: subject, HTML: body.String()}, nil
}

// FormatNumber groups thousands the way the copy expects ("1,750").
func (r *Renderer) FormatNumber(n int64) string {
	return r.printer.Sprintf("%d", n)
}

func Greeting(stage signupdomain.Stage, firstName string) string {
	firstName = strings.TrimSpace(firstName)
	switch stage {
	case signupdomain.StageInvite:
		if firstName == "" {
			return "Welcome"
		}
		return "Hey " + firstName + ", welcome"
	default:
		if firstName == "" {
			return "Hey there,"
		}
		return "Hey " + firstName + ","
	}
}

func subjectFor(stage signupdomain.Stage, settings config.OutreachSettings) string {
	if stage == signupdomain.StageFollowUp {
		return settings.FollowUp.Subject
	}
	return settings.Invite.Subject
}

func renderSubject(src string, data Data) (string, error) {
	tmpl, err := texttemplate.New("subject").Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse subject: %w", err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render subject: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

// ValidateSubject reports whether src parses as a subject template.
func ValidateSubject(src string) error {
	_, err := texttemplate.New("subject").Parse(src)
	return err
}
