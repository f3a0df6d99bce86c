package slices_test

import (
	"testing"

	"github.com/expfab/expfab/pkg/utils/cmp"
	"github.com/expfab/expfab/pkg/utils/slices"
)

func TestSliceUtils(t *testing.T) {
	t.Run("Map maps slice to another", func(t *testing.T) {
		input := []int{3, 5, 7, 11}
		called := 0
		mapper := func(v int) int {
			called += 1
			return v * 2
		}
		output := slices.Map(input, mapper)

		if called != len(input) {
			t.Errorf("mapper has not been called enough. (actual, expected) = (%d, %d)", called, len(input))
		}

		expected := []int{6, 10, 14, 22}
		if !cmp.SliceEq(output, expected) {
			t.Errorf("mapped result is wrong. (actual, expected) = (%v, %v)", output, expected)
		}
	})

	t.Run("First finds the first match", func(t *testing.T) {
		input := []string{"created", "running", "succeeded"}

		found, ok := slices.First(input, func(v string) bool { return v == "running" })
		if !ok || found != "running" {
			t.Errorf("unexpected result. (found, ok) = (%v, %v)", found, ok)
		}

		_, ok = slices.First(input, func(v string) bool { return v == "stopped" })
		if ok {
			t.Error("it finds a match, unexpectedly")
		}
	})

	t.Run("ToMap converts slice to map", func(t *testing.T) {
		type T struct {
			key   string
			value int
		}
		values := []T{
			{key: "a", value: 3},
			{key: "b", value: 99},
			{key: "c", value: 100},
		}

		result := slices.ToMap(values, func(v T) string { return v.key })

		expected := map[string]T{
			"a": {key: "a", value: 3},
			"b": {key: "b", value: 99},
			"c": {key: "c", value: 100},
		}
		if !cmp.MapEq(result, expected) {
			t.Errorf(
				"ToMap generates wrong map. (actual, expected) = (%v, %v)",
				result, expected,
			)
		}
	})
}
