package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
		ResetTimeout:     time.Minute,
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New(testConfig())
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d err = %v", i, err)
		}
	}

	// Next call is rejected without running the function.
	ran := false
	err := cb.Execute(ctx, func() error { ran = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if ran {
		t.Fatal("function ran while breaker open")
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New(testConfig())
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, func() error { return boom })
	}
	time.Sleep(25 * time.Millisecond)

	// Two successes in half-open close the breaker again.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, func() error { return nil }); err != nil {
			t.Fatalf("half-open attempt %d: %v", i, err)
		}
	}
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("closed again but Execute failed: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.GetState())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New(testConfig())
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, func() error { return boom })
	}
	time.Sleep(25 * time.Millisecond)

	cb.Execute(ctx, func() error { return boom })

	if err := cb.Execute(ctx, func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen after half-open failure", err)
	}
}
