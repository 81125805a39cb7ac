package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}
	attempts := 0
	err := p.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
}

func TestDoExhaustsAttemptBudget(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}
	attempts := 0
	wantErr := errors.New("still failing")
	err := p.Do(context.Background(), func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("got error %v, want %v", err, wantErr)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
}

func TestDoZeroValuePolicyRunsOnce(t *testing.T) {
	var p Policy
	attempts := 0
	_ = p.Do(context.Background(), func() error {
		attempts++
		return errors.New("fail")
	})
	if attempts != 1 {
		t.Errorf("got %d attempts, want 1", attempts)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialDelay: time.Millisecond}
	attempts := 0
	inner := errors.New("not found")
	err := p.Do(context.Background(), func() error {
		attempts++
		return Permanent{Err: inner}
	})
	if !errors.Is(err, inner) {
		t.Errorf("got error %v, want %v", err, inner)
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want 1", attempts)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	p := Policy{MaxAttempts: 10, InitialDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func() error { return errors.New("fail") })
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got error %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}
