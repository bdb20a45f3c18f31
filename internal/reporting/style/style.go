// Package style holds the catalog of report styles. A style selects the
// headings, agent profiles and chunk size of a report; it never changes how
// generated markup is parsed.
package style

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

//go:embed styles.toml
var embeddedCatalog string

// ErrUnknownStyle is returned when a style name is not in the catalog.
var ErrUnknownStyle = errors.New("unknown report style")

// Agent is the persona and task template for one kind of generation call.
type Agent struct {
	Role      string `toml:"role"`
	Goal      string `toml:"goal"`
	Backstory string `toml:"backstory"`
	// Task is a text/template source.
	Task string `toml:"task"`
}

// Sections names the headings inserted by the report service. An empty
// title suppresses the heading.
type Sections struct {
	Intro    string `toml:"intro"`
	Findings string `toml:"findings"`
}

// Style is one entry of the catalog.
type Style struct {
	Name           string   `toml:"-"`
	Title          string   `toml:"title"`
	ChunkSize      int      `toml:"chunk_size"`
	PagePerSection bool     `toml:"page_per_section"`
	FinalMarker    string   `toml:"final_marker"`
	Tier           string   `toml:"tier"`
	Footer         string   `toml:"footer"`
	Sections       Sections `toml:"sections"`
	Body           Agent    `toml:"body"`
	// Intro is optional; styles without it skip the introduction call.
	Intro *Agent `toml:"intro"`
}

// ModelTier returns the generation tier, defaulting to the powerful one.
func (s Style) ModelTier() schemas.ModelTier {
	if s.Tier == string(schemas.TierFast) {
		return schemas.TierFast
	}
	return schemas.TierPowerful
}

func (s Style) validate() error {
	switch {
	case s.Title == "":
		return fmt.Errorf("style %q: title is required", s.Name)
	case s.ChunkSize < 1:
		return fmt.Errorf("style %q: chunk_size must be a positive integer", s.Name)
	case strings.TrimSpace(s.Body.Task) == "":
		return fmt.Errorf("style %q: body task is required", s.Name)
	case s.Intro != nil && strings.TrimSpace(s.Intro.Task) == "":
		return fmt.Errorf("style %q: intro task is required when an intro is configured", s.Name)
	}
	switch s.Tier {
	case "", string(schemas.TierFast), string(schemas.TierPowerful):
	default:
		return fmt.Errorf("style %q: unknown tier %q", s.Name, s.Tier)
	}
	return nil
}

// Catalog is an immutable set of styles keyed by lowercase name.
type Catalog struct {
	styles map[string]Style
}

type catalogFile struct {
	Styles map[string]Style `toml:"styles"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(embeddedCatalog)
}

// Parse decodes a TOML catalog. Unknown keys are rejected so that typos in
// a custom catalog do not silently fall back to empty values.
func Parse(data string) (*Catalog, error) {
	var file catalogFile
	md, err := toml.Decode(data, &file)
	return build(file, md, err)
}

// LoadFile decodes a TOML catalog from disk. "~" is expanded.
func LoadFile(path string) (*Catalog, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand style catalog path %s: %w", path, err)
	}
	var file catalogFile
	md, err := toml.DecodeFile(expanded, &file)
	return build(file, md, err)
}

func build(file catalogFile, md toml.MetaData, err error) (*Catalog, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to decode style catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("style catalog has unknown keys: %s", strings.Join(keys, ", "))
	}
	if len(file.Styles) == 0 {
		return nil, errors.New("style catalog defines no styles")
	}

	c := &Catalog{styles: make(map[string]Style, len(file.Styles))}
	for name, s := range file.Styles {
		s.Name = strings.ToLower(name)
		if err := s.validate(); err != nil {
			return nil, err
		}
		c.styles[s.Name] = s
	}
	return c, nil
}

// Get looks a style up by case-insensitive name.
func (c *Catalog) Get(name string) (Style, error) {
	s, ok := c.styles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Style{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownStyle, name, strings.Join(c.Names(), ", "))
	}
	return s, nil
}

// Names returns the style names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.styles))
	for name := range c.styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
