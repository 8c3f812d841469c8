package blocklist

import (
	"os"
	"path/filepath"
	"testing"
)

func writeList(t *testing.T, lines string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.txt")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckCaseInsensitiveSubstring(t *testing.T) {
	path := writeList(t, "BADCALL\n# comment\n\nspammer\n")
	l := New(path, 60000)
	if !l.Check("BADCALL123") {
		t.Error("expected BADCALL123 to be blocked")
	}
	if !l.Check("xspammerx") {
		t.Error("expected xspammerx to be blocked (case-insensitive)")
	}
	if l.Check("GOODCALL12") {
		t.Error("expected GOODCALL12 to pass")
	}
}

func TestDisabledWhenNoPath(t *testing.T) {
	l := New("", 60000)
	if l.Check("ANYTHING") {
		t.Error("expected empty-path list to never match")
	}
}

func TestClockReloadsOnChange(t *testing.T) {
	path := writeList(t, "FIRST\n")
	l := New(path, 50)
	if !l.Check("FIRST1") {
		t.Fatal("expected FIRST1 blocked before reload")
	}

	if err := os.WriteFile(path, []byte("SECOND\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l.Clock(60)

	if l.Check("FIRST1") {
		t.Error("expected FIRST1 no longer blocked after reload")
	}
	if !l.Check("SECOND1") {
		t.Error("expected SECOND1 blocked after reload")
	}
}
