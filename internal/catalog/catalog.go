package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrMissingTemplate = errors.New("missing response template")

// Keys every responses file must define.
var RequiredKeys = []string{
	"greeting_message",
	"menu_message",
	"pedido_response",
	"other_questions_message",
	"tiempo_pedido_response",
	"orden_mal_response",
	"app_no_abre_response",
	"info_proporcionada_response",
}

// Catalog holds the canned response templates and the system prompt built
// from the rules file. It is read-only after Load.
type Catalog struct {
	messages     map[string]string
	rules        []string
	systemPrompt string
}

type rulesFile struct {
	Rules []string `json:"rules" yaml:"rules"`
}

// New builds a catalog from in-memory templates and rules.
func New(messages map[string]string, rules []string) *Catalog {
	m := make(map[string]string, len(messages))
	for k, v := range messages {
		m[k] = v
	}
	r := append([]string(nil), rules...)
	return &Catalog{messages: m, rules: r, systemPrompt: strings.Join(r, " ")}
}

// Load reads the responses and rules files. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON.
func Load(responsesPath, rulesPath string) (*Catalog, error) {
	var messages map[string]string
	if err := decodeFile(responsesPath, &messages); err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	var rf rulesFile
	if err := decodeFile(rulesPath, &rf); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	c := New(messages, rf.Rules)
	if missing := c.Missing(RequiredKeys...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingTemplate, strings.Join(missing, ", "))
	}
	return c, nil
}

func decodeFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, out)
	default:
		return json.Unmarshal(b, out)
	}
}

// Missing returns the keys that have no template, sorted.
func (c *Catalog) Missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if _, ok := c.messages[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Text returns the raw template for key, or the key itself when undefined.
func (c *Catalog) Text(key string) string {
	if t, ok := c.messages[key]; ok {
		return t
	}
	return key
}

// Render substitutes {name} placeholders in the template for key.
// Unknown placeholders are left untouched.
func (c *Catalog) Render(key string, vars map[string]string) string {
	t := c.Text(key)
	if len(vars) == 0 {
		return t
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(t)
}

func (c *Catalog) Rules() []string {
	return append([]string(nil), c.rules...)
}

// SystemPrompt is every rule joined by a single space.
func (c *Catalog) SystemPrompt() string {
	return c.systemPrompt
}
