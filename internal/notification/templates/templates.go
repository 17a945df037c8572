// Package templates loads the notification catalog and renders messages for
// the email and WhatsApp channels.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml email/*.html
var templateFS embed.FS

// ErrUnknownTemplate is returned for names missing from the catalog.
var ErrUnknownTemplate = errors.New("unknown notification template")

// Data is the template context. Keys are snake_case.
type Data map[string]any

type whatsappEntry struct {
	Name   string   `yaml:"name"`
	Params []string `yaml:"params"`
}

type entry struct {
	Subject  string         `yaml:"subject"`
	Email    string         `yaml:"email"`
	Text     string         `yaml:"text"`
	WhatsApp *whatsappEntry `yaml:"whatsapp"`
}

type catalogFile struct {
	Templates map[string]entry `yaml:"templates"`
}

type compiled struct {
	subject  *texttemplate.Template
	text     *texttemplate.Template
	html     *htmltemplate.Template
	whatsapp *whatsappEntry
}

// Email is a rendered email.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

// WhatsApp is a rendered WhatsApp template message.
type WhatsApp struct {
	Name   string
	Params []string
}

// Catalog holds every template, parsed once.
type Catalog struct {
	entries map[string]compiled
}

// Load parses the embedded catalog and all referenced files.
func Load() (*Catalog, error) {
	raw, err := templateFS.ReadFile("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{entries: make(map[string]compiled, len(file.Templates))}
	for name, e := range file.Templates {
		var (
			tpl compiled
			err error
		)
		opt := "missingkey=zero"
		if tpl.subject, err = texttemplate.New(name + ".subject").Option(opt).Parse(e.Subject); err != nil {
			return nil, fmt.Errorf("parse subject %s: %w", name, err)
		}
		if tpl.text, err = texttemplate.New(name + ".text").Option(opt).Parse(e.Text); err != nil {
			return nil, fmt.Errorf("parse text %s: %w", name, err)
		}
		if e.Email != "" {
			tpl.html, err = htmltemplate.New("base.html").Option(opt).ParseFS(templateFS, "email/base.html", "email/"+e.Email)
			if err != nil {
				return nil, fmt.Errorf("parse email template %s: %w", name, err)
			}
		}
		tpl.whatsapp = e.WhatsApp
		c.entries[name] = tpl
	}
	return c, nil
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// RenderEmail renders the subject, HTML body and plain-text alternative.
func (c *Catalog) RenderEmail(name string, data Data) (Email, error) {
	tpl, ok := c.entries[name]
	if !ok {
		return Email{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	if tpl.html == nil {
		return Email{}, fmt.Errorf("template %s has no email body", name)
	}

	var subject, text, html bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Email{}, fmt.Errorf("execute subject %s: %w", name, err)
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("execute text %s: %w", name, err)
	}
	withSubject := make(Data, len(data)+1)
	for k, v := range data {
		withSubject[k] = v
	}
	withSubject["subject"] = strings.TrimSpace(subject.String())
	if err := tpl.html.ExecuteTemplate(&html, "email", withSubject); err != nil {
		return Email{}, fmt.Errorf("execute email template %s: %w", name, err)
	}

	return Email{
		Subject: strings.TrimSpace(subject.String()),
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}

// RenderWhatsApp resolves the approved template name and its body parameters.
// Missing keys become empty strings.
func (c *Catalog) RenderWhatsApp(name string, data Data) (WhatsApp, error) {
	tpl, ok := c.entries[name]
	if !ok {
		return WhatsApp{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	if tpl.whatsapp == nil || tpl.whatsapp.Name == "" {
		return WhatsApp{}, fmt.Errorf("template %s has no whatsapp variant", name)
	}

	params := make([]string, 0, len(tpl.whatsapp.Params))
	for _, key := range tpl.whatsapp.Params {
		v, ok := data[key]
		if !ok || v == nil {
			params = append(params, "")
			continue
		}
		params = append(params, fmt.Sprint(v))
	}
	return WhatsApp{Name: tpl.whatsapp.Name, Params: params}, nil
}
