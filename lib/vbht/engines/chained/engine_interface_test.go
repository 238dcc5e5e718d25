package chained

import (
	"testing"

	"github.com/kvengine/vbht/lib/vbht"
	"github.com/kvengine/vbht/lib/vbht/htesting"
)

func TestEngine(t *testing.T) {
	htesting.RunHashTableTests(t, "ChainedHashTable", func() vbht.Engine {
		return New(47, 4)
	})
}
