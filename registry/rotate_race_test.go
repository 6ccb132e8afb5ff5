package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRotateConcurrentSingleWinner(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Create(ctx, activeRecord("t0", "f1", hashByte(0), time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			successor := activeRecord(fmt.Sprintf("t%d", i+1), "f1", hashByte(byte(i+1)), time.Hour)
			successor.PreviousTokenID = "t0"
			results <- store.Rotate(ctx, hashByte(0), successor)
		}(i)
	}
	wg.Wait()
	close(results)

	success := 0
	reuse := 0
	revoked := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrRecordRotated):
			reuse++
		case errors.Is(err, ErrRecordRevoked):
			revoked++
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one rotate winner, got %d", success)
	}
	if reuse+revoked != n-1 {
		t.Fatalf("expected %d losers, got reuse=%d revoked=%d", n-1, reuse, revoked)
	}
	// A loser observing the consumed record triggers family revocation, so
	// at least one of the losses must have been classified as reuse.
	if reuse == 0 {
		t.Fatal("expected at least one reuse classification")
	}
}
