package exr

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bin")
	testData := []byte("Hello, World! This is test data for mmap testing.")
	if err := os.WriteFile(path, testData, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	m, err := mapFile(f)
	if err != nil {
		f.Close()
		t.Fatalf("mapFile error: %v", err)
	}
	if string(m.data) != string(testData) {
		t.Errorf("mapped data = %q, want %q", m.data, testData)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
}

func TestMapFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	m, err := mapFile(f)
	if err != nil {
		f.Close()
		t.Fatalf("mapFile error: %v", err)
	}
	if len(m.data) != 0 {
		t.Errorf("len(data) = %d, want 0", len(m.data))
	}
	m.Close()
}
