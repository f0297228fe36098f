// Package notify builds the outbound email messages. Transports live in internal/infra.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"assessment-service/internal/domain"
	"assessment-service/internal/i18n"
	"assessment-service/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

// Attachment is a file carried by a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a transport-independent HTML email.
type Message struct {
	To          []string
	ReplyTo     string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Settings are the brand and addressing values shared by every message.
type Settings struct {
	Title            string
	BrandName        string
	Tagline          string
	ReplyTo          string
	AppointmentEmail string
	// Location formats consultation timestamps for the internal team.
	Location *time.Location
}

// Composer renders messages from the embedded templates.
type Composer struct {
	tmpl     *template.Template
	bundle   *i18n.Bundle
	settings Settings
}

func NewComposer(bundle *i18n.Bundle, s Settings) (*Composer, error) {
	if bundle == nil {
		bundle = i18n.Default()
	}
	if s.Location == nil {
		s.Location = time.UTC
	}
	tmpl, err := template.New("notify").Funcs(template.FuncMap{
		"lines": func(s string) []string { return strings.Split(s, "\n") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Composer{tmpl: tmpl, bundle: bundle, settings: s}, nil
}

func (c *Composer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Report is the respondent's localized cover message carrying the PDF.
func (c *Composer) Report(ev domain.SubmissionEvent, pdf Attachment) (Message, error) {
	strs := c.bundle.Lookup(ev.Locale)
	html, err := c.render("report.html", struct {
		Locale           string
		RTL              bool
		Title            string
		Name             string
		Email            i18n.EmailStrings
		AppointmentEmail string
		BrandName        string
		Tagline          string
	}{
		Locale:           strs.Locale,
		RTL:              strings.HasPrefix(strs.Locale, "ar"),
		Title:            c.settings.Title,
		Name:             ev.Respondent.Name,
		Email:            strs.Email,
		AppointmentEmail: c.settings.AppointmentEmail,
		BrandName:        c.settings.BrandName,
		Tagline:          c.settings.Tagline,
	})
	if err != nil {
		return Message{}, err
	}
	subject := strs.Email.Subject
	if subject == "" {
		subject = c.settings.Title
	}
	return Message{
		To:          []string{ev.Respondent.Email},
		ReplyTo:     c.settings.ReplyTo,
		Subject:     subject,
		HTML:        html,
		Attachments: []Attachment{pdf},
	}, nil
}

// InternalNotice summarises a submission for the internal recipients; it has no attachment.
func (c *Composer) InternalNotice(ev domain.SubmissionEvent, cat domain.Catalog, to []string) (Message, error) {
	html, err := c.render("internal_notice.html", struct {
		Title       string
		ID          string
		Respondent  domain.Respondent
		Score       domain.ScoreResult
		Band        string
		Locale      string
		SubmittedAt string
		Rows        []report.Row
	}{
		Title:       c.settings.Title,
		ID:          ev.ID,
		Respondent:  ev.Respondent,
		Score:       ev.Score,
		Band:        ev.Band.Title(),
		Locale:      ev.Locale,
		SubmittedAt: ev.SubmittedAt.UTC().Format(time.RFC3339),
		Rows:        report.ResolveRows(cat, ev.Answers),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: c.settings.Title, HTML: html}, nil
}

type consultationView struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Company     string
	Score       string
	RequestedAt string
	BrandName   string
	Tagline     string
}

func (c *Composer) consultationView(req domain.ConsultationRequest, at time.Time) consultationView {
	v := consultationView{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		RequestedAt: at.In(c.settings.Location).Format("1/2/2006, 3:04:05 PM MST"),
		BrandName:   c.settings.BrandName,
		Tagline:     c.settings.Tagline,
	}
	if req.Context.PersonalInfo != nil {
		v.Company = req.Context.PersonalInfo.Company
	}
	if req.Context.Score != nil {
		v.Score = strconv.Itoa(*req.Context.Score)
	}
	return v
}

// ConsultationNotice tells the internal team about a booking.
func (c *Composer) ConsultationNotice(req domain.ConsultationRequest, at time.Time, to []string) (Message, error) {
	html, err := c.render("consultation_admin.html", c.consultationView(req, at))
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "New consultation request from assessment summary", HTML: html}, nil
}

// ConsultationConfirmation thanks the requester.
func (c *Composer) ConsultationConfirmation(req domain.ConsultationRequest, at time.Time) (Message, error) {
	html, err := c.render("consultation_user.html", c.consultationView(req, at))
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{strings.TrimSpace(req.Email)},
		ReplyTo: c.settings.ReplyTo,
		Subject: "Thank you for booking a consultation with " + c.settings.BrandName,
		HTML:    html,
	}, nil
}
