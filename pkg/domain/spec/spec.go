// Package spec handles declarative experiment specifications.
//
// A specification is a YAML mapping. Deriving an experiment may pass
// override configs; Validate merges them over the source in order and
// re-checks the result, so an invalid merge is rejected before anything
// is written.
package spec

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrInvalidSpec = errors.New("invalid specification")

type Spec struct {
	parsed map[string]any
}

// Parse reads raw YAML into a Spec.
//
// The document must be a non-empty mapping; anything else is
// ErrInvalidSpec.
func Parse(raw []byte) (Spec, error) {
	var parsed map[string]any
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Spec{}, fmt.Errorf("%w: %s", ErrInvalidSpec, err)
	}
	return New(parsed)
}

// New validates an already-parsed config as a Spec.
func New(parsed map[string]any) (Spec, error) {
	if len(parsed) == 0 {
		return Spec{}, fmt.Errorf("%w: empty specification", ErrInvalidSpec)
	}
	if decl, ok := parsed["declarations"]; ok {
		if _, ok := decl.(map[string]any); !ok {
			return Spec{}, fmt.Errorf(
				"%w: declarations should be a mapping", ErrInvalidSpec,
			)
		}
	}
	return Spec{parsed: parsed}, nil
}

// the parsed configuration. Callers should not mutate it.
func (s Spec) Parsed() map[string]any {
	return s.parsed
}

// key/value parameters declared by the specification, or nil.
func (s Spec) Declarations() map[string]any {
	decl, ok := s.parsed["declarations"].(map[string]any)
	if !ok {
		return nil
	}
	return decl
}

// Validate merges configs in order (later entries override earlier keys,
// mappings merge recursively) and validates the result.
//
// This is the single path for derivation overrides: Validate(source, override).
func Validate(configs ...map[string]any) (Spec, error) {
	if len(configs) == 0 {
		return Spec{}, fmt.Errorf("%w: nothing to validate", ErrInvalidSpec)
	}

	merged := map[string]any{}
	for _, c := range configs {
		merged = merge(merged, c)
	}
	return New(merged)
}

func merge(base, override map[string]any) map[string]any {
	ret := map[string]any{}
	for k, v := range base {
		ret[k] = v
	}
	for k, v := range override {
		if vm, ok := v.(map[string]any); ok {
			if bm, ok := ret[k].(map[string]any); ok {
				ret[k] = merge(bm, vm)
				continue
			}
		}
		ret[k] = v
	}
	return ret
}
