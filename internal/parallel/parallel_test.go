package parallel_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"filmdex/internal/parallel"
)

func TestMapPreservesInputOrder(t *testing.T) {
	inputs := []int{0, 1, 2, 3, 4, 5, 6, 7}
	results := parallel.Map(context.Background(), inputs, 3, func(_ context.Context, index int, input int) string {
		// Later inputs finish first to exercise out-of-order completion.
		time.Sleep(time.Duration(len(inputs)-index) * time.Millisecond)
		return fmt.Sprintf("r%d", input)
	})

	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, got := range results {
		if want := fmt.Sprintf("r%d", i); got != want {
			t.Fatalf("result %d misaligned: got %q want %q", i, got, want)
		}
	}
}

func TestMapEmptyInputReturnsImmediately(t *testing.T) {
	done := make(chan []string, 1)
	go func() {
		done <- parallel.Map(context.Background(), nil, 4, func(context.Context, int, string) string {
			t.Error("fn should never run for empty input")
			return ""
		})
	}()

	select {
	case results := <-done:
		if len(results) != 0 {
			t.Fatalf("expected empty results, got %v", results)
		}
	case <-time.After(time.Second):
		t.Fatal("Map did not return for empty input")
	}
}

func TestMapHonorsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	inputs := make([]int, 20)

	parallel.Map(context.Background(), inputs, 4, func(_ context.Context, _ int, _ int) struct{} {
		current := inFlight.Add(1)
		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}
	})

	if got := peak.Load(); got > 4 {
		t.Fatalf("concurrency ceiling exceeded: %d in flight", got)
	}
}

func TestMapIsolatesFailures(t *testing.T) {
	type result struct {
		value int
		err   error
	}
	inputs := []int{1, 2, 3, 4}

	results := parallel.Map(context.Background(), inputs, 2, func(_ context.Context, _ int, input int) result {
		if input == 2 {
			return result{err: errors.New("boom")}
		}
		return result{value: input * 10}
	})

	if results[1].err == nil {
		t.Fatal("expected error for failing input")
	}
	for _, i := range []int{0, 2, 3} {
		if results[i].err != nil {
			t.Fatalf("sibling %d should not fail: %v", i, results[i].err)
		}
		if results[i].value != inputs[i]*10 {
			t.Fatalf("sibling %d lost its result: %+v", i, results[i])
		}
	}
}
