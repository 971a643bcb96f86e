package creds

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/wafleet/wafleet/internal/workdir"
)

func testStore(t *testing.T) *FileStore {
	t.Helper()
	dir, err := workdir.Resolve(filepath.Join(t.TempDir(), "wd"))
	if err != nil {
		t.Fatal(err)
	}
	return NewFileStore(dir)
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := testStore(t)
	blob, err := s.Get("absent")
	if err != nil {
		t.Fatal(err)
	}
	if blob != nil {
		t.Errorf("blob = %v, want nil for missing session", blob)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := testStore(t)
	want := []byte(`{"device":"1234@s"}`)
	if err := s.Set("s1", want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("s1")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("blob = %q, want %q", got, want)
	}
}

func TestSetOverwrites(t *testing.T) {
	s := testStore(t)
	if err := s.Set("s1", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("s1", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get("s1")
	if string(got) != "v2" {
		t.Errorf("blob = %q, want v2", got)
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	if err := s.Set("s1", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("s1"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("blob should be gone after Delete")
	}
	// Deleting again is fine.
	if err := s.Delete("s1"); err != nil {
		t.Errorf("second Delete error = %v", err)
	}
}
