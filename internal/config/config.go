// Package config loads TSLint configuration files.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/muhammadmuzzammil1998/jsonc"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/duvholt/strictyield/internal/lint"
)

// FileNames are the configuration files searched for, in order.
var FileNames = []string{"tslint.json", "tslint.yaml", "tslint.yml"}

// ErrNotFound is returned by Find when no configuration file exists.
var ErrNotFound = errors.New("no tslint configuration found")

//go:embed tslint.schema.json
var schemaJSON []byte

const schemaURL = "mem://schemas/tslint.schema.json"

var (
	compileOnce sync.Once
	schema      *jsonschema.Schema
	compileErr  error
)

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("decode schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("register schema: %w", err)
			return
		}
		schema, compileErr = c.Compile(schemaURL)
	})
	return schema, compileErr
}

// RuleConfig is the resolved configuration of one rule.
type RuleConfig struct {
	Enabled  bool
	Severity lint.Severity
	Options  []string
}

// Config is a resolved TSLint configuration.
type Config struct {
	Path            string // empty for the default config
	DefaultSeverity lint.Severity
	Rules           map[string]RuleConfig
	Exclude         []string
}

// Default is the configuration used when no file is found: every rule on
// with error severity and no options.
func Default() *Config {
	return &Config{
		DefaultSeverity: lint.SeverityError,
		Rules:           map[string]RuleConfig{},
	}
}

// Rule returns the configuration of a rule. Rules absent from the file are
// enabled with the default severity.
func (c *Config) Rule(name string) RuleConfig {
	if rc, ok := c.Rules[name]; ok {
		return rc
	}
	return RuleConfig{Enabled: true, Severity: c.DefaultSeverity}
}

// Excluded reports whether path matches one of linterOptions.exclude.
// Patterns are resolved relative to the directory of the config file.
func (c *Config) Excluded(path string) bool {
	if len(c.Exclude) == 0 {
		return false
	}
	candidates := []string{filepath.ToSlash(path)}
	if c.Path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if rel, err := filepath.Rel(filepath.Dir(c.Path), abs); err == nil {
			candidates = append(candidates, filepath.ToSlash(rel))
		}
	}
	for _, pattern := range c.Exclude {
		pattern = filepath.ToSlash(pattern)
		for _, cand := range candidates {
			if ok, err := doublestar.Match(pattern, cand); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Find looks for a configuration file in dir and its parents.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Resolver maps linted files to their configuration: the nearest
// configuration file in the file's directory or its parents, or Default
// when there is none. A fixed configuration, when given, applies to every
// file. Resolver is safe for concurrent use.
type Resolver struct {
	fixed  *Config
	adjust func(*Config)

	mu     sync.Mutex
	byDir  map[string]*Config
	byPath map[string]*Config
	def    *Config
}

// NewResolver creates a Resolver. adjust, if non-nil, is applied once to
// every configuration the Resolver hands out, such as command line
// overrides.
func NewResolver(fixed *Config, adjust func(*Config)) *Resolver {
	if fixed != nil && adjust != nil {
		adjust(fixed)
	}
	return &Resolver{
		fixed:  fixed,
		adjust: adjust,
		byDir:  make(map[string]*Config),
		byPath: make(map[string]*Config),
	}
}

// For returns the configuration of the file at path.
func (r *Resolver) For(path string) (*Config, error) {
	if r.fixed != nil {
		return r.fixed, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)

	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg, ok := r.byDir[dir]; ok {
		return cfg, nil
	}

	var cfg *Config
	found, err := Find(dir)
	switch {
	case errors.Is(err, ErrNotFound):
		if r.def == nil {
			r.def = Default()
			r.apply(r.def)
		}
		cfg = r.def
	case err != nil:
		return nil, err
	default:
		if cfg = r.byPath[found]; cfg == nil {
			if cfg, err = Load(found); err != nil {
				return nil, err
			}
			r.apply(cfg)
			r.byPath[found] = cfg
		}
	}
	r.byDir[dir] = cfg
	return cfg, nil
}

func (r *Resolver) apply(cfg *Config) {
	if r.adjust != nil {
		r.adjust(cfg)
	}
}

// Load reads, validates and resolves a configuration file. YAML is used
// for .yaml/.yml files, JSON with comments otherwise.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	if abs, err := filepath.Abs(path); err == nil {
		cfg.Path = abs
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

type rawConfig struct {
	DefaultSeverity string                     `json:"defaultSeverity"`
	Rules           map[string]json.RawMessage `json:"rules"`
	LinterOptions   struct {
		Exclude []string `json:"exclude"`
	} `json:"linterOptions"`
}

// Parse decodes configuration bytes.
func Parse(data []byte, yamlInput bool) (*Config, error) {
	clean, err := normalize(data, yamlInput)
	if err != nil {
		return nil, err
	}

	if err := validate(clean); err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := json.Unmarshal(clean, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	cfg := Default()
	if cfg.DefaultSeverity, err = lint.ParseSeverity(raw.DefaultSeverity); err != nil {
		return nil, err
	}
	cfg.Exclude = raw.LinterOptions.Exclude

	for name, value := range raw.Rules {
		rc, err := parseRule(value, cfg.DefaultSeverity)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		cfg.Rules[name] = rc
	}
	return cfg, nil
}

// normalize turns either input format into plain JSON.
func normalize(data []byte, yamlInput bool) ([]byte, error) {
	if !yamlInput {
		return jsonc.ToJSON(data), nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return out, nil
}

func validate(clean []byte) error {
	s, err := getSchema()
	if err != nil {
		return err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(clean))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// parseRule accepts the TSLint rule forms:
//
//	true | false
//	[true, "option", ...]
//	{"severity": "warning", "options": [...] | "option" | true}
func parseRule(value json.RawMessage, def lint.Severity) (RuleConfig, error) {
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return RuleConfig{}, err
	}
	rc := RuleConfig{Severity: def}

	switch v := v.(type) {
	case bool:
		rc.Enabled = v
	case []any:
		if len(v) == 0 {
			return rc, nil
		}
		on, ok := v[0].(bool)
		if !ok {
			return rc, fmt.Errorf("first element must be a boolean, got %T", v[0])
		}
		rc.Enabled = on
		rc.Options = stringOptions(v[1:])
	case map[string]any:
		rc.Enabled = true
		if s, ok := v["severity"].(string); ok {
			sev, err := lint.ParseSeverity(s)
			if err != nil {
				return rc, err
			}
			rc.Severity = sev
		}
		switch opts := v["options"].(type) {
		case []any:
			rc.Options = stringOptions(opts)
		case string:
			rc.Options = []string{opts}
		case bool:
			rc.Enabled = opts
		}
	}

	if rc.Severity == lint.SeverityOff {
		rc.Enabled = false
	}
	return rc, nil
}

func stringOptions(values []any) []string {
	var out []string
	for _, o := range values {
		if s, ok := o.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
