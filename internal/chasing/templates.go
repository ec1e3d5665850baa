package chasing

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

//go:embed messages.yaml
var defaultMessages []byte

// MessageData is what a reminder template can reference.
type MessageData struct {
	Name        string
	Amount      string
	Unit        string
	Property    string
	DueDate     string
	DaysOverdue int
	Count       int
}

var (
	languages = []types.Language{types.English, types.Swahili}
	channels  = []types.Channel{types.ChannelSMS, types.ChannelWhatsApp}
)

type templateKey struct {
	lang    types.Language
	level   types.Escalation
	channel types.Channel
}

// Catalog holds a parsed template for every language, escalation level, and
// channel.
type Catalog struct {
	templates map[templateKey]*template.Template
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// DefaultCatalog returns the embedded message catalog. It panics if the
// embedded file is invalid.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(defaultMessages)
		if err != nil {
			panic(fmt.Sprintf("chasing: embedded messages: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadCatalog reads a catalog from a YAML file. An empty path returns the
// embedded catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chasing: read messages: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and compiles a YAML catalog. Every language, level,
// and channel must have a template, and each must render against sample data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw map[string]map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("chasing: decode messages: %w", err)
	}

	sample := MessageData{Name: "Amina", Amount: "KES 1,000", Unit: "A1", Property: "Riverside", DueDate: "1 Jan 2026", DaysOverdue: 2, Count: 2}
	c := &Catalog{templates: make(map[templateKey]*template.Template)}
	for _, lang := range languages {
		for _, level := range types.Escalations {
			for _, ch := range channels {
				text := strings.TrimSpace(raw[string(lang)][string(level)][string(ch)])
				name := fmt.Sprintf("%s.%s.%s", lang, level, ch)
				if text == "" {
					return nil, fmt.Errorf("chasing: messages: missing template %s", name)
				}
				tmpl, err := template.New(name).Parse(text)
				if err != nil {
					return nil, fmt.Errorf("chasing: messages: %w", err)
				}
				if err := tmpl.Execute(&strings.Builder{}, sample); err != nil {
					return nil, fmt.Errorf("chasing: messages: %w", err)
				}
				c.templates[templateKey{lang, level, ch}] = tmpl
			}
		}
	}
	return c, nil
}

// Render fills the template for lang, level, and channel. Unknown languages
// use English.
func (c *Catalog) Render(lang types.Language, level types.Escalation, ch types.Channel, data MessageData) (string, error) {
	if lang != types.Swahili {
		lang = types.English
	}
	tmpl, ok := c.templates[templateKey{lang, level, ch}]
	if !ok {
		return "", fmt.Errorf("chasing: no template for %s.%s.%s", lang, level, ch)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("chasing: render %s: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
