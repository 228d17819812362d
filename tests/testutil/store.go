package testutil

import (
	"testing"

	"github.com/cvconnect/interviewsync/internal/store/archive"
)

// NewTestArchive creates an in-memory Archive with all migrations applied.
// It automatically closes the archive when the test completes.
func NewTestArchive(t *testing.T) *archive.Archive {
	t.Helper()

	a, err := archive.Open(":memory:")
	if err != nil {
		t.Fatalf("creating test archive: %v", err)
	}

	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("closing test archive: %v", err)
		}
	})

	return a
}
