package guard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSameKeyNeverOverlaps(t *testing.T) {
	g := New()

	var inside atomic.Int32
	var overlaps atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background(), "t1", "v1")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer release()

			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	if n := overlaps.Load(); n != 0 {
		t.Errorf("observed %d overlapping runs for the same key", n)
	}
}

func TestDifferentKeysRunInParallel(t *testing.T) {
	g := New()

	r1, err := g.Acquire(context.Background(), "t1", "v1")
	if err != nil {
		t.Fatalf("Acquire t1:v1: %v", err)
	}
	defer r1()

	// While t1:v1 is held, every other combination must acquire immediately.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, key := range [][2]string{{"t1", "v2"}, {"t2", "v1"}, {"t2", "v2"}} {
		release, err := g.Acquire(ctx, key[0], key[1])
		if err != nil {
			t.Fatalf("Acquire %s:%s while t1:v1 held: %v", key[0], key[1], err)
		}
		release()
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	g := New()

	release, err := g.Acquire(context.Background(), "t1", "v1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := g.Acquire(ctx, "t1", "v1")
		errc <- err
	}()

	cancel()
	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter did not return after cancellation")
	}

	// The slot must still be usable by the holder and future waiters.
	release()
	r2, err := g.Acquire(context.Background(), "t1", "v1")
	if err != nil {
		t.Fatalf("re-Acquire after cancelled waiter: %v", err)
	}
	r2()
}

func TestReleaseIsIdempotent(t *testing.T) {
	g := New()

	release, err := g.Acquire(context.Background(), "t1", "v1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
	release() // second call must be a no-op, not free someone else's slot

	r2, err := g.Acquire(context.Background(), "t1", "v1")
	if err != nil {
		t.Fatalf("Acquire after double release: %v", err)
	}
	defer r2()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx, "t1", "v1"); err == nil {
		t.Error("slot acquired twice concurrently: double release freed it")
	}
}

func TestWaiterAdmittedAfterRelease(t *testing.T) {
	g := New()

	release, err := g.Acquire(context.Background(), "t1", "v1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	done := make(chan struct{})
	go func() {
		r, err := g.Acquire(context.Background(), "t1", "v1")
		if err != nil {
			t.Errorf("waiter Acquire: %v", err)
			close(done)
			return
		}
		r()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not admitted after release")
	}
}
