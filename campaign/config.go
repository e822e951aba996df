// Package campaign holds the static marketing configuration: the UTM taxonomy, the campaign
// template catalog, the event catalog and the funnel definitions.
package campaign

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is loaded once at startup and never mutated afterwards.
type Config struct {
	Taxonomy  Taxonomy           `yaml:"taxonomy" json:"taxonomy"`
	Templates []CampaignTemplate `yaml:"templates" json:"templates" validate:"dive"`
	Events    []EventDefinition  `yaml:"events" json:"events" validate:"dive"`
	Funnels   []FunnelDefinition `yaml:"funnels" json:"funnels" validate:"dive"`
}

type CampaignTemplate struct {
	Name        string `yaml:"name" json:"name" validate:"required"`
	Source      string `yaml:"source" json:"source" validate:"required"`
	Medium      string `yaml:"medium" json:"medium" validate:"required"`
	Content     string `yaml:"content,omitempty" json:"content,omitempty"`
	Term        string `yaml:"term,omitempty" json:"term,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type EventDefinition struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Category string `yaml:"category" json:"category" validate:"required"`
	// Required lists the property keys every occurrence must carry.
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`
	// Conversion marks events counted as conversions in campaign reports.
	Conversion bool `yaml:"conversion,omitempty" json:"conversion,omitempty"`
}

type FunnelDefinition struct {
	Name   string        `yaml:"name" json:"name" validate:"required"`
	Stages []FunnelStage `yaml:"stages" json:"stages" validate:"required,min=1,dive"`
}

type FunnelStage struct {
	Name  string `yaml:"name" json:"name" validate:"required"`
	Event string `yaml:"event" json:"event" validate:"required"`
	// TargetRate is the expected conversion from the previous stage, in [0,1].
	TargetRate float64 `yaml:"target_rate" json:"targetRate" validate:"gte=0,lte=1"`
}

var validate = validator.New()

// LoadFile reads a YAML config. Sections missing from the file keep the built-in defaults.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read marketing config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var file Config
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("failed to parse marketing config: %w", err)
	}

	cfg := Default()
	if len(file.Taxonomy.Sources) > 0 || len(file.Taxonomy.Mediums) > 0 || file.Taxonomy.CampaignPattern != "" {
		cfg.Taxonomy = file.Taxonomy
	}
	if len(file.Templates) > 0 {
		cfg.Templates = file.Templates
	}
	if len(file.Events) > 0 {
		cfg.Events = file.Events
	}
	if len(file.Funnels) > 0 {
		cfg.Funnels = file.Funnels
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields, compiles the campaign pattern and checks that every funnel
// stage refers to a cataloged event.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid marketing config: %w", err)
	}
	if err := c.Taxonomy.compile(); err != nil {
		return err
	}

	known := make(map[string]struct{}, len(c.Events))
	for _, e := range c.Events {
		if _, dup := known[e.Name]; dup {
			return fmt.Errorf("invalid marketing config: duplicate event %q", e.Name)
		}
		known[e.Name] = struct{}{}
	}
	for _, f := range c.Funnels {
		for _, st := range f.Stages {
			if _, ok := known[st.Event]; !ok {
				return fmt.Errorf("invalid marketing config: funnel %q stage %q uses unknown event %q", f.Name, st.Name, st.Event)
			}
		}
	}
	return nil
}

var ErrFunnelNotFound = errors.New("funnel not found")

// Funnel looks a funnel up by name.
func (c *Config) Funnel(name string) (FunnelDefinition, error) {
	for _, f := range c.Funnels {
		if f.Name == name {
			return f, nil
		}
	}
	return FunnelDefinition{}, fmt.Errorf("%w: %s", ErrFunnelNotFound, name)
}

// Event looks up an event definition by name.
func (c *Config) Event(name string) (EventDefinition, bool) {
	for _, e := range c.Events {
		if e.Name == name {
			return e, true
		}
	}
	return EventDefinition{}, false
}

// ConversionEvents lists the names of events flagged as conversions.
func (c *Config) ConversionEvents() []string {
	var out []string
	for _, e := range c.Events {
		if e.Conversion {
			out = append(out, e.Name)
		}
	}
	return out
}

// Catalog returns the template matcher over the configured templates.
func (c *Config) Catalog() *Catalog {
	return NewCatalog(c.Templates)
}

func (t *Taxonomy) compile() error {
	t.pattern = nil
	if t.CampaignPattern == "" {
		return nil
	}
	re, err := regexp.Compile(t.CampaignPattern)
	if err != nil {
		return fmt.Errorf("invalid campaign pattern %q: %w", t.CampaignPattern, err)
	}
	t.pattern = re
	return nil
}
