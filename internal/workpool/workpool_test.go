package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapPreservesOrder(t *testing.T) {
	t.Parallel()

	items := []int{5, 3, 8, 1, 9, 2}
	got, err := Map(context.Background(), 2, items, func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range items {
		if got[i] != n*10 {
			t.Errorf("result[%d] = %d, want %d", i, got[i], n*10)
		}
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	_, err := Map(context.Background(), 3, items, func(ctx context.Context, _ int) (struct{}, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("observed %d in flight, want at most 3", p)
	}
}

func TestMapFirstErrorCancels(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	items := []int{0, 1, 2, 3, 4}

	_, err := Map(context.Background(), 1, items, func(ctx context.Context, n int) (int, error) {
		if n == 1 {
			return 0, boom
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return n, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the worker error in the chain", err)
	}
}

func TestMapEmptyInput(t *testing.T) {
	t.Parallel()

	got, err := Map(context.Background(), 3, nil, func(ctx context.Context, n int) (int, error) {
		t.Error("fn called for empty input")
		return 0, nil
	})
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestEach(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	err := Each(context.Background(), 2, []int{1, 2, 3}, func(ctx context.Context, _ int) error {
		count.Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count.Load() != 3 {
		t.Errorf("fn ran %d times", count.Load())
	}
}
