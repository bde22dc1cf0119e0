package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempCatalogDir(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempCatalogDir(t)
	content := []byte(`<Catalog><Name literal="Homo"/></Catalog>`)
	if err := s.Write("hominidae.xml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("hominidae.xml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempCatalogDir(t)
	if err := s.Write("animalia/chordata/mammalia.xml", []byte("<Catalog/>")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Read("animalia/chordata/mammalia.xml"); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempCatalogDir(t)
	_ = s.Write("gone.xml", []byte("<Catalog/>"))
	if err := s.Delete("gone.xml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("gone.xml"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList_OnlyCatalogFiles(t *testing.T) {
	s := tempCatalogDir(t)
	_ = s.Write("a.xml", []byte("<Catalog/>"))
	_ = s.Write("sub/b.XML", []byte("<Catalog/>"))
	_ = s.Write("readme.txt", []byte("not a catalog"))
	_ = os.WriteFile(filepath.Join(s.Root(), ".hidden.xml"), []byte("x"), 0o644)

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2 (%v)", len(items), items)
	}
	for _, it := range items {
		if it.Checksum != Checksum([]byte("<Catalog/>")) {
			t.Errorf("%s checksum = %s", it.Path, it.Checksum)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempCatalogDir(t)
	for _, p := range []string{"../../etc/passwd", "../outside.xml", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempCatalogDir(t)
	_ = s.Write("atomic.xml", []byte("original"))
	if err := s.Write("atomic.xml", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.xml")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".nomencurator-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "nomencurator-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
