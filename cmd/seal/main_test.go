package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"epicdash/internal/storage"
)

func TestSealFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "streamer")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "summoner_mapping.csv")
	if err := os.WriteFile(path, []byte("summoner_name\nFaker\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, compress := range []bool{false, true} {
		if err := sealFile(path, "pw", compress); err != nil {
			t.Fatalf("sealFile(gzip=%v): %v", compress, err)
		}

		vault, err := storage.NewVault(storage.NewLocalSource(root), "pw", t.TempDir())
		if err != nil {
			t.Fatalf("NewVault: %v", err)
		}
		records, err := vault.ReadCSV(context.Background(), "streamer", "summoner_mapping")
		if err != nil {
			t.Fatalf("ReadCSV(gzip=%v): %v", compress, err)
		}
		if len(records) != 2 || records[1][0] != "Faker" {
			t.Errorf("Unexpected records %v", records)
		}
	}
}

func TestSealFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	if err := sealFile(path, "pw", false); err == nil {
		t.Error("Expected an error for a missing input")
	}
	if _, err := os.Stat(path + ".aes"); !os.IsNotExist(err) {
		t.Error("Expected no output for a missing input")
	}
}
