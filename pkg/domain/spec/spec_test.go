package spec_test

import (
	"errors"
	"testing"

	"github.com/expfab/expfab/pkg/domain/spec"
	"github.com/expfab/expfab/pkg/utils/try"
)

func TestParse(t *testing.T) {
	t.Run("it parses a yaml mapping", func(t *testing.T) {
		s := try.To(spec.Parse([]byte(`
framework: tensorflow
declarations:
  lr: 0.1
  batch_size: 128
`))).OrFatal(t)

		parsed := s.Parsed()
		if parsed["framework"] != "tensorflow" {
			t.Errorf("framework is not parsed: %v", parsed["framework"])
		}

		decl := s.Declarations()
		if decl == nil {
			t.Fatal("declarations should not be nil")
		}
		if decl["lr"] != 0.1 {
			t.Errorf("lr is not extracted: %v", decl["lr"])
		}
	})

	t.Run("it rejects non-mapping documents", func(t *testing.T) {
		for name, raw := range map[string]string{
			"scalar":   `just a string`,
			"sequence": "- a\n- b",
			"empty":    ``,
		} {
			t.Run(name, func(t *testing.T) {
				if _, err := spec.Parse([]byte(raw)); !errors.Is(err, spec.ErrInvalidSpec) {
					t.Errorf("error is not ErrInvalidSpec: %v", err)
				}
			})
		}
	})

	t.Run("it rejects scalar declarations", func(t *testing.T) {
		_, err := spec.Parse([]byte("declarations: oops"))
		if !errors.Is(err, spec.ErrInvalidSpec) {
			t.Errorf("error is not ErrInvalidSpec: %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("later configs override earlier keys", func(t *testing.T) {
		source := map[string]any{
			"framework": "tensorflow",
			"declarations": map[string]any{
				"lr":         0.1,
				"batch_size": 128,
			},
		}
		override := map[string]any{
			"declarations": map[string]any{
				"lr": 0.01,
			},
		}

		s := try.To(spec.Validate(source, override)).OrFatal(t)

		decl := s.Declarations()
		if decl["lr"] != 0.01 {
			t.Errorf("lr should be overridden: %v", decl["lr"])
		}
		if decl["batch_size"] != 128 {
			t.Errorf("batch_size should be kept: %v", decl["batch_size"])
		}
		if s.Parsed()["framework"] != "tensorflow" {
			t.Errorf("framework should be kept: %v", s.Parsed()["framework"])
		}
	})

	t.Run("source is not mutated by merging", func(t *testing.T) {
		source := map[string]any{
			"declarations": map[string]any{"lr": 0.1},
		}
		override := map[string]any{
			"declarations": map[string]any{"lr": 0.5},
		}

		_ = try.To(spec.Validate(source, override)).OrFatal(t)

		if source["declarations"].(map[string]any)["lr"] != 0.1 {
			t.Error("merging should not write through to the source")
		}
	})

	t.Run("invalid merge result is a client-visible error", func(t *testing.T) {
		source := map[string]any{"framework": "torch"}
		override := map[string]any{"declarations": "broken"}

		if _, err := spec.Validate(source, override); !errors.Is(err, spec.ErrInvalidSpec) {
			t.Errorf("error is not ErrInvalidSpec: %v", err)
		}
	})
}
