package testutil

import (
	"testing"

	chromem "github.com/philippgille/chromem-go"
)

// CreateTempChromemDB creates a new in-memory chromem-go instance for
// isolated testing. The returned cleanup function is a no-op; the
// in-memory state is garbage collected with the test.
func CreateTempChromemDB(t *testing.T) (*chromem.DB, func()) {
	client := chromem.NewDB()
	return client, func() {}
}
