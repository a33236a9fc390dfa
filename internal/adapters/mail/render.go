// Package mail turns lifecycle notifications into email and delivers them.
package mail

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/alubilles/membership-api/internal/ports/out/notifier"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ErrUnknownKind is returned for notification kinds without a template.
var ErrUnknownKind = errors.New("no mail template for notification kind")

var subjects = map[notifier.Kind]string{
	notifier.KindRegistration:         "%s - Application received",
	notifier.KindApproval:             "%s - Membership approved",
	notifier.KindRejection:            "%s - Decision on your application",
	notifier.KindSuspension:           "%s - Membership suspended",
	notifier.KindAdminNewRegistration: "%s - New application %s",
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type view struct {
	Association  string
	FirstName    string
	LastName     string
	MemberNumber string
	Reason       string
}

// Renderer renders notifications with the embedded templates.
type Renderer struct {
	association string
	text        *texttemplate.Template
	html        *htmltemplate.Template
}

func NewRenderer(association string) (*Renderer, error) {
	if association == "" {
		association = "ALUBILLES"
	}
	txt, err := texttemplate.ParseFS(templateFS, "templates/messages.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/messages.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Renderer{association: association, text: txt, html: html}, nil
}

func (r *Renderer) Render(n notifier.Notification) (Message, error) {
	subject, ok := subjects[n.Kind]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
	v := view{
		Association:  r.association,
		FirstName:    n.Fields[notifier.FieldFirstName],
		LastName:     n.Fields[notifier.FieldLastName],
		MemberNumber: n.Fields[notifier.FieldMemberNumber],
		Reason:       n.Fields[notifier.FieldReason],
	}

	var text, html bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, string(n.Kind), v); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", n.Kind, err)
	}
	if err := r.html.ExecuteTemplate(&html, string(n.Kind), v); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", n.Kind, err)
	}

	if n.Kind == notifier.KindAdminNewRegistration {
		subject = fmt.Sprintf(subject, r.association, v.MemberNumber)
	} else {
		subject = fmt.Sprintf(subject, r.association)
	}
	return Message{To: n.To, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}
