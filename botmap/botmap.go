// Package botmap loads named bot definitions from a JSON document and
// classifies user-agent strings against them.
package botmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Definition is one named classification rule.
type Definition struct {
	Name     string
	Patterns []string
	IPRanges []string // carried for forward compatibility; not used for matching
	IsLLM    bool

	re *regexp.Regexp
}

// Registry holds compiled definitions in document order. Matching is
// first-match-wins, so document order is significant.
type Registry struct {
	defs []Definition
}

// Load parses a bot definition document. Each entry maps a bot name to
// either a bare pattern string or an object with optional "patterns",
// "ip_ranges" and "is_llm" keys. Entry order is preserved.
func Load(data []byte) (*Registry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing bot map: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("bot map must be a JSON object")
	}

	var defs []Definition
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing bot map: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing bot map: unexpected key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("bot %q: %w", name, err)
		}

		def, err := decodeDefinition(name, raw)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing bot map: %w", err)
	}

	return &Registry{defs: defs}, nil
}

// LoadFile loads a bot definition document from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bot map: %w", err)
	}
	return Load(data)
}

// decodeDefinition normalizes the two accepted entry shapes into one
// Definition and compiles its patterns.
func decodeDefinition(name string, raw json.RawMessage) (Definition, error) {
	def := Definition{Name: name, IsLLM: true}

	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		// Legacy shorthand: the value is a single pattern string.
		def.Patterns = []string{bare}
	} else {
		var entry struct {
			Patterns json.RawMessage `json:"patterns"`
			IPRanges []string        `json:"ip_ranges"`
			IsLLM    *bool           `json:"is_llm"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return Definition{}, fmt.Errorf("bot %q: entry must be a pattern string or an object: %w", name, err)
		}

		if len(entry.Patterns) > 0 {
			var one string
			if err := json.Unmarshal(entry.Patterns, &one); err == nil {
				def.Patterns = []string{one}
			} else if err := json.Unmarshal(entry.Patterns, &def.Patterns); err != nil {
				return Definition{}, fmt.Errorf("bot %q: patterns must be a string or a list of strings", name)
			}
		}
		def.IPRanges = entry.IPRanges
		if entry.IsLLM != nil {
			def.IsLLM = *entry.IsLLM
		}
	}

	// A bot with no usable patterns still matches its own name.
	if len(def.Patterns) == 0 {
		def.Patterns = []string{name}
	}

	re, err := regexp.Compile("(?i)" + strings.Join(def.Patterns, "|"))
	if err != nil {
		return Definition{}, fmt.Errorf("bot %q: compiling patterns: %w", name, err)
	}
	def.re = re

	return def, nil
}

// Definitions returns the loaded definitions in document order.
func (r *Registry) Definitions() []Definition { return r.defs }

// Len returns the number of loaded definitions.
func (r *Registry) Len() int { return len(r.defs) }
