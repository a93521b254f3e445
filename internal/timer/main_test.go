package timer

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if a tick loop outlives its engine.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
