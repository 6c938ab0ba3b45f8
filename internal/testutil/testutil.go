package testutil

import (
	"os"
	"testing"
)

// MustWriteFile writes content to a file, terminating the test on failure.
// The path is returned for convenience.
func MustWriteFile(t *testing.T, path, content string) string {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%q) failed: %v", path, err)
	}

	return path
}
