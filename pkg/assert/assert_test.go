package assert_test

import (
	"testing"

	"github.com/argus-labs/tickworld/pkg/assert"
	testifyassert "github.com/stretchr/testify/assert"
)

func TestThat(t *testing.T) {
	t.Parallel()

	testifyassert.NotPanics(t, func() { assert.That(true, "never shown") })
	testifyassert.PanicsWithValue(t, "invariant violated: storage 7 missing", func() {
		assert.That(false, "storage %d missing", 7)
	})
}
