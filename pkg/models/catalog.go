// Package models holds the selectable model catalog and remaps deprecated
// identifiers to their current values.
package models

import (
	_ "embed"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// Option is one selectable model.
type Option struct {
	Label    string   `yaml:"label" json:"label"`
	Value    string   `yaml:"value" json:"value"`
	Provider string   `yaml:"provider" json:"provider"`
	Aliases  []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// Catalog is the set of models a session can be bound to.
type Catalog struct {
	Default string   `yaml:"default"`
	Options []Option `yaml:"models"`

	byValue map[string]Option
	aliases map[string]string
}

// Selection keeps both the identifier that was asked for and the one that
// will be sent, so a remap never loses the historical id.
type Selection struct {
	Requested string `json:"requested" yaml:"requested"`
	Effective string `json:"effective" yaml:"effective"`
	Remapped  bool   `json:"remapped" yaml:"remapped"`
	Known     bool   `json:"known" yaml:"known"`
}

func (s Selection) String() string {
	if s.Remapped {
		return s.Effective + " (was " + s.Requested + ")"
	}
	return s.Effective
}

func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(err, "decode model catalog")
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open model catalog %s", path)
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}

// Builtin returns the embedded catalog.
func Builtin() *Catalog {
	c, err := Load(strings.NewReader(string(builtinCatalog)))
	if err != nil {
		panic(errors.Wrap(err, "builtin model catalog"))
	}
	return c
}

func (c *Catalog) index() error {
	if len(c.Options) == 0 {
		return errors.New("model catalog has no models")
	}
	c.byValue = make(map[string]Option, len(c.Options))
	c.aliases = map[string]string{}
	for _, o := range c.Options {
		if o.Value == "" {
			return errors.Errorf("model %q has no value", o.Label)
		}
		if _, dup := c.byValue[o.Value]; dup {
			return errors.Errorf("model %q listed twice", o.Value)
		}
		c.byValue[o.Value] = o
	}
	for _, o := range c.Options {
		for _, a := range o.Aliases {
			if _, clash := c.byValue[a]; clash {
				return errors.Errorf("alias %q of %q is also a current model", a, o.Value)
			}
			c.aliases[a] = o.Value
		}
	}
	if c.Default == "" {
		c.Default = c.Options[0].Value
	}
	if _, ok := c.byValue[c.Default]; !ok {
		return errors.Errorf("default model %q is not in the catalog", c.Default)
	}
	return nil
}

func (c *Catalog) Lookup(value string) (Option, bool) {
	o, ok := c.byValue[value]
	return o, ok
}

// Select resolves id against the catalog. Deprecated aliases are remapped to
// their current value with a warning; unknown ids pass through unchanged.
func (c *Catalog) Select(id string) Selection {
	id = strings.TrimSpace(id)
	if id == "" {
		return Selection{Requested: c.Default, Effective: c.Default, Known: true}
	}
	if _, ok := c.byValue[id]; ok {
		return Selection{Requested: id, Effective: id, Known: true}
	}
	if current, ok := c.aliases[id]; ok {
		log.Warn().Str("requested", id).Str("effective", current).Msg("remapped deprecated model id")
		return Selection{Requested: id, Effective: current, Remapped: true, Known: true}
	}
	return Selection{Requested: id, Effective: id}
}

// Holder is the model selection owned by the active session.
type Holder struct {
	mu      sync.Mutex
	catalog *Catalog
	current Selection
}

func NewHolder(c *Catalog) *Holder {
	if c == nil {
		c = Builtin()
	}
	return &Holder{catalog: c, current: c.Select("")}
}

func (h *Holder) Catalog() *Catalog { return h.catalog }

// Select resolves id and makes it the current selection.
func (h *Holder) Select(id string) Selection {
	sel := h.catalog.Select(id)
	h.mu.Lock()
	h.current = sel
	h.mu.Unlock()
	return sel
}

func (h *Holder) Current() Selection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}
