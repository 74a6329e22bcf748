package storage

import (
	"testing"
	"time"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
)

func TestGuard_SnapshotAndWrite(t *testing.T) {
	s := tempRoot(t)
	g := NewGuard(s)
	_ = s.Write("doc.md", []byte("v1"))

	snap, err := g.Snapshot("doc.md")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if string(snap.Content) != "v1" {
		t.Errorf("content = %q", snap.Content)
	}

	if err := g.WriteIfUnchanged("doc.md", snap.Version, []byte("v2")); err != nil {
		t.Fatalf("WriteIfUnchanged: %v", err)
	}
	got, _ := s.Read("doc.md")
	if string(got) != "v2" {
		t.Errorf("content after write = %q, want exactly the supplied content", got)
	}
}

func TestGuard_StaleVersionConflicts(t *testing.T) {
	s := tempRoot(t)
	g := NewGuard(s)
	_ = s.Write("doc.md", []byte("v1"))

	// Two writers snapshot the same generation.
	snap1, err := g.Snapshot("doc.md")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	snap2, err := g.Snapshot("doc.md")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Make sure the winning write lands with a newer mtime even on coarse
	// filesystem clocks.
	time.Sleep(10 * time.Millisecond)

	if err := g.WriteIfUnchanged("doc.md", snap1.Version, []byte("winner")); err != nil {
		t.Fatalf("first write should win: %v", err)
	}
	err = g.WriteIfUnchanged("doc.md", snap2.Version, []byte("loser"))
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Fatalf("second write err = %v, want CONFLICT", err)
	}

	// The losing write must not have modified the file.
	got, _ := s.Read("doc.md")
	if string(got) != "winner" {
		t.Errorf("content = %q, want %q", got, "winner")
	}
}

func TestGuard_SnapshotMissingDocument(t *testing.T) {
	g := NewGuard(tempRoot(t))
	_, err := g.Snapshot("missing.md")
	if !apperr.IsCode(err, apperr.CodeDocumentNotFound) {
		t.Errorf("err = %v, want DOCUMENT_NOT_FOUND", err)
	}
}

func TestGuard_WriteMissingDocument(t *testing.T) {
	g := NewGuard(tempRoot(t))
	err := g.WriteIfUnchanged("missing.md", time.Now(), []byte("x"))
	if !apperr.IsCode(err, apperr.CodeDocumentNotFound) {
		t.Errorf("err = %v, want DOCUMENT_NOT_FOUND", err)
	}
}

func TestGuard_ConcurrentWritersExactlyOneWinner(t *testing.T) {
	s := tempRoot(t)
	g := NewGuard(s)
	_ = s.Write("doc.md", []byte("base"))

	snap, err := g.Snapshot("doc.md")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	const writers = 8
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			results <- g.WriteIfUnchanged("doc.md", snap.Version, []byte{byte('a' + n)})
		}(i)
	}

	wins := 0
	for i := 0; i < writers; i++ {
		if err := <-results; err == nil {
			wins++
		} else if !apperr.IsCode(err, apperr.CodeConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
}
