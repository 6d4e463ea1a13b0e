package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestAtomicWriter_WriteFile(t *testing.T) {
	tempDir := t.TempDir()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writer := newAtomicWriter(filepath.Join(tempDir, "backups"), 2, func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})

	target := filepath.Join(tempDir, "prod", "baseline.json")
	for i := 0; i < 4; i++ {
		if err := writer.WriteFile(target, []byte(fmt.Sprintf("v%d", i)), 0o644); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	data, err := writer.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "v3" {
		t.Errorf("File content mismatch. Expected: v3, Got: %s", data)
	}

	backups, err := writer.backups(target)
	if err != nil {
		t.Fatalf("Failed to list backups: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("Expected 2 retained backups, got %d", len(backups))
	}
	newest, _ := os.ReadFile(backups[1])
	if string(newest) != "v2" {
		t.Errorf("Newest backup should hold v2, got %s", newest)
	}

	leftovers, _ := filepath.Glob(target + ".tmp.*")
	if len(leftovers) != 0 {
		t.Errorf("Temp files left behind: %v", leftovers)
	}
}

func TestAtomicWriter_ConcurrentWrites(t *testing.T) {
	writer := newAtomicWriter("", 0, nil)
	target := filepath.Join(t.TempDir(), "concurrent.json")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := writer.WriteFile(target, []byte(fmt.Sprintf("writer-%02d", n)), 0o644); err != nil {
				t.Errorf("write failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := writer.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if len(data) != len("writer-00") {
		t.Errorf("Unexpected content after concurrent writes: %q", data)
	}
}
