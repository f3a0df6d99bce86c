package strings_test

import (
	"strings"
	"testing"

	"github.com/expfab/expfab/pkg/utils/cmp"
	kstr "github.com/expfab/expfab/pkg/utils/strings"
)

func TestSplitIfNotEmpty(t *testing.T) {
	t.Run("it does not split empty string", func(t *testing.T) {
		actual := kstr.SplitIfNotEmpty("", ",")
		if len(actual) != 0 {
			t.Errorf(`"%s" -> %+v`, "", actual)
		}
	})

	for _, pattern := range []string{
		"aa,bbb,ccc",
		",aaa,bb", // leading separator
		"aa,bb,",  // trailing separator
		",,,",     // separator only sequence
		",",       // single separator
	} {
		t.Run("it does split non-empty string like strings.Split", func(t *testing.T) {
			actual := kstr.SplitIfNotEmpty(pattern, ",")
			expected := strings.Split(pattern, ",")
			if !cmp.SliceEq(actual, expected) {
				t.Errorf(`"%s" -> (actual, expected) = (%+v, %+v)`, pattern, actual, expected)
			}
		})
	}
}
