package mosession

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bayazee/mosession/store"
)

func TestConcurrentLifecycles(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemory(), nil)

	const workers = 16
	const rounds = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			token := ""
			for i := 0; i < rounds; i++ {
				s, err := e.Begin(ctx, token)
				if err != nil {
					errs <- fmt.Errorf("worker %d begin: %w", w, err)
					return
				}
				if err := s.Set("round", i); err != nil {
					errs <- fmt.Errorf("worker %d set: %w", w, err)
					return
				}
				instr, err := e.End(ctx, s)
				if err != nil {
					errs <- fmt.Errorf("worker %d end: %w", w, err)
					return
				}
				if instr.Op == OpSetToken {
					token = instr.Token
				}
				if token == "" {
					errs <- fmt.Errorf("worker %d has no token after round %d", w, i)
					return
				}
			}

			final, err := e.Begin(ctx, token)
			if err != nil {
				errs <- fmt.Errorf("worker %d final begin: %w", w, err)
				return
			}
			if got := final.GetInt("round"); got != rounds-1 {
				errs <- fmt.Errorf("worker %d final round = %d, want %d", w, got, rounds-1)
			}
		}(w)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// Two requests racing on the same token: whichever End completes last owns
// the stored record in full. No merging.
func TestLastWriterWins(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemory(), nil)

	seed, _ := e.Begin(ctx, "")
	if err := seed.Set("winner", "nobody"); err != nil {
		t.Fatalf("set: %v", err)
	}
	instr := mustEnd(t, e, seed)

	a, _ := e.Begin(ctx, instr.Token)
	b, _ := e.Begin(ctx, instr.Token)

	if err := a.Set("winner", "a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := a.Set("only_a", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := b.Set("winner", "b"); err != nil {
		t.Fatalf("set: %v", err)
	}

	mustEnd(t, e, a)
	mustEnd(t, e, b)

	final, _ := e.Begin(ctx, instr.Token)
	if got := final.GetString("winner"); got != "b" {
		t.Fatalf("winner = %q, want b", got)
	}
	if _, ok := final.Get("only_a"); ok {
		t.Fatal("losing request's keys leaked into the winning snapshot")
	}
}
