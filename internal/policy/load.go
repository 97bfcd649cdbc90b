package policy

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Set holds the resolved default policy plus per-symbol overrides.
type Set struct {
	defaults Policy
	symbols  map[string]Policy
}

// fileSchema is the on-disk YAML shape. Sections are kept as raw
// nodes so each can be strict-decoded over a copy of the defaults,
// which gives shallow merge semantics: only fields present in the
// symbol section override.
type fileSchema struct {
	Default yaml.Node            `yaml:"default"`
	Symbols map[string]yaml.Node `yaml:"symbols"`
}

// Load parses a policy file. Unknown fields anywhere in the file are
// rejected. A missing or empty file path yields built-in defaults only.
func Load(path string) (*Set, error) {
	if path == "" {
		return &Set{defaults: Default(), symbols: map[string]Policy{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(raw)
}

// Parse parses policy YAML from memory.
func Parse(raw []byte) (*Set, error) {
	var file fileSchema
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	defaults := Default()
	if file.Default.Kind != 0 {
		if err := decodeStrict(&file.Default, &defaults); err != nil {
			return nil, fmt.Errorf("default section: %w", err)
		}
	}

	symbols := make(map[string]Policy, len(file.Symbols))
	for sym, node := range file.Symbols {
		p := defaults
		if err := decodeStrict(&node, &p); err != nil {
			return nil, fmt.Errorf("symbol %s: %w", sym, err)
		}
		symbols[sym] = p
	}
	return &Set{defaults: defaults, symbols: symbols}, nil
}

// decodeStrict re-runs a YAML node through a strict decoder so that
// unknown fields inside nested sections are rejected too.
func decodeStrict(node *yaml.Node, out *Policy) error {
	buf, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// For returns the resolved policy for a symbol: the symbol section
// shallow-merged over defaults, or the defaults when no section exists.
func (s *Set) For(symbol string) Policy {
	if p, ok := s.symbols[symbol]; ok {
		return p
	}
	return s.defaults
}

// Defaults returns the resolved default policy.
func (s *Set) Defaults() Policy {
	return s.defaults
}

// Symbols lists the symbols that carry explicit overrides.
func (s *Set) Symbols() []string {
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}
