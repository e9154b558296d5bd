package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/ccdarank/internal/domain/document"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func handleIDs(hs []document.Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.ID
	}
	return out
}

func TestList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.xml"), "<a/>")
	writeFile(t, filepath.Join(root, "a.XML"), "<a/>")
	writeFile(t, filepath.Join(root, "sub", "c.xml"), "<a/>")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, ".hidden.xml"), "<a/>")
	writeFile(t, filepath.Join(root, ".git", "d.xml"), "<a/>")
	writeFile(t, filepath.Join(root, "archive", "e.xml"), "<a/>")

	handles, err := NewLister("").WithExcludeDirs("archive").List(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a.XML", "b.xml", "sub/c.xml"}, handleIDs(handles)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if handles[1].Size != 4 {
		t.Errorf("size = %d, want 4", handles[1].Size)
	}
}

func TestList_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.xml")
	writeFile(t, file, "<a/>")
	if _, err := NewLister(".xml").List(context.Background(), file); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewLister("xml").List(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestFingerprint(t *testing.T) {
	mt := time.Unix(100, 0)
	a := []document.Handle{{ID: "a", Size: 1, ModTime: mt}, {ID: "b", Size: 2, ModTime: mt}}
	reordered := []document.Handle{a[1], a[0]}
	if Fingerprint(a) != Fingerprint(reordered) {
		t.Error("fingerprint depends on order")
	}
	changed := []document.Handle{{ID: "a", Size: 1, ModTime: mt}, {ID: "b", Size: 3, ModTime: mt}}
	if Fingerprint(a) == Fingerprint(changed) {
		t.Error("fingerprint ignores size change")
	}
	added := append([]document.Handle{{ID: "c", ModTime: mt}}, a...)
	if Fingerprint(a) == Fingerprint(added) {
		t.Error("fingerprint ignores added document")
	}
}

func TestBatches(t *testing.T) {
	hs := []document.Handle{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}}
	got := Batches(hs, 2)
	if len(got) != 3 || len(got[2]) != 1 || got[2][0].ID != "5" {
		t.Errorf("Batches(5, 2) = %v", got)
	}
	if n := len(Batches(hs, 0)); n != 5 {
		t.Errorf("size 0 should fall back to 1, got %d batches", n)
	}
	if n := len(Batches(nil, 3)); n != 0 {
		t.Errorf("empty input gave %d batches", n)
	}
}
