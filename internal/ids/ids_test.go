package ids

import (
	"sync"
	"testing"
)

func TestNewIsUniqueAndValid(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("unexpected id length %d for %q", len(id), id)
		}
		if !Valid(id) {
			t.Fatalf("generated id %q does not parse", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewIsSafeForConcurrentUse(t *testing.T) {
	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	out := make(chan string, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				out <- New()
			}
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[string]struct{}, workers*perWorker)
	for id := range out {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q under concurrency", id)
		}
		seen[id] = struct{}{}
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-an-id", "0000", New() + "x"} {
		if Valid(s) {
			t.Fatalf("Valid(%q) = true, want false", s)
		}
	}
}
