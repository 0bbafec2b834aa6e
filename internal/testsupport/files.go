package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteAudioStub drops a small file at the target path that stands in for
// an audio file in tests. The content is deliberately not a parseable
// stream; metadata reads on it must come back empty so titles fall back to
// the filename stem.
func WriteAudioStub(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	content := append([]byte("stub"), make([]byte, 60)...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
