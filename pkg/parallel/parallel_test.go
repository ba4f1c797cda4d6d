package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	out, err := Map(context.Background(), items, 2, func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for i, n := range items {
		if out[i] != n*10 {
			t.Errorf("out[%d] = %d, want %d", i, out[i], n*10)
		}
	}
}

func TestMapRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 50)

	_, err := Map(context.Background(), items, 3, func(ctx context.Context, _ int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestMapReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	out, err := Map(context.Background(), []int{1, 2, 3}, 0, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if out != nil {
		t.Error("results should be nil on error")
	}
}

func TestMapAllKeepsGoing(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	res := MapAll(context.Background(), []int{1, 2, 3, 4}, 2, func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		if n%2 == 0 {
			return 0, boom
		}
		return n, nil
	})
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
	if res[0].Value != 1 || res[0].Err != nil {
		t.Errorf("res[0] = %+v", res[0])
	}
	if !errors.Is(res[1].Err, boom) {
		t.Errorf("res[1].Err = %v", res[1].Err)
	}
	if res[2].Value != 3 {
		t.Errorf("res[2] = %+v", res[2])
	}
}

func TestMapAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	res := MapAll(ctx, []int{1, 2}, 1, func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})
	if calls.Load() != 0 {
		t.Errorf("fn should not run after cancel, ran %d times", calls.Load())
	}
	for i, r := range res {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("res[%d].Err = %v", i, r.Err)
		}
	}
}

func TestForEach(t *testing.T) {
	var sum atomic.Int64
	err := ForEach(context.Background(), []int{1, 2, 3}, 2, func(ctx context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	})
	if err != nil || sum.Load() != 6 {
		t.Errorf("ForEach: err=%v sum=%d", err, sum.Load())
	}
}
