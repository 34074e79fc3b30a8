package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
)

// flakyCollector fails until succeedAfter calls have been made.
type flakyCollector struct {
	calls        int
	succeedAfter int
	err          error
}

func (f *flakyCollector) Name() string            { return "flaky" }
func (f *flakyCollector) Description() string     { return "flaky test collector" }
func (f *flakyCollector) Interval() time.Duration { return time.Minute }
func (f *flakyCollector) Collect(_ context.Context) (*collectors.CollectResult, error) {
	f.calls++
	if f.succeedAfter >= 0 && f.calls > f.succeedAfter {
		return &collectors.CollectResult{Collector: "flaky", Timestamp: time.Now()}, nil
	}
	err := f.err
	if err == nil {
		err = fmt.Errorf("%w: boom", collectors.ErrCollection)
	}
	return nil, err
}

func testConfig() Config {
	return Config{MaxFailures: 3, BaseDelay: time.Minute, MaxDelay: 30 * time.Minute}
}

func TestWrapPassesThroughIdentity(t *testing.T) {
	inner := &flakyCollector{succeedAfter: 0}
	b := Wrap(inner, testConfig(), nil)

	if b.Name() != "flaky" || b.Description() == "" || b.Interval() != time.Minute {
		t.Error("wrapper does not delegate identity methods")
	}
}

func TestSuccessPassesThrough(t *testing.T) {
	inner := &flakyCollector{succeedAfter: 0}
	b := Wrap(inner, testConfig(), nil)

	result, err := b.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if result == nil || result.Collector != "flaky" {
		t.Errorf("result = %+v", result)
	}
	if b.Failures() != 0 {
		t.Errorf("failures = %d, want 0", b.Failures())
	}
}

func TestBackoffOpensAfterMaxFailures(t *testing.T) {
	inner := &flakyCollector{succeedAfter: -1}
	b := Wrap(inner, testConfig(), nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := b.Collect(ctx); err == nil {
			t.Fatalf("call %d unexpectedly succeeded", i)
		}
	}
	if inner.calls != 3 {
		t.Fatalf("inner calls = %d, want 3", inner.calls)
	}

	// The skip window is now open: the inner collector must not run.
	_, err := b.Collect(ctx)
	if !errors.Is(err, ErrSkipped) {
		t.Fatalf("got %v, want ErrSkipped", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner ran during skip window: %d calls", inner.calls)
	}

	// Skips still read as collection failures to callers.
	if !errors.Is(err, collectors.ErrCollection) {
		t.Error("ErrSkipped must satisfy errors.Is against ErrCollection")
	}
}

func TestFailuresBelowThresholdDoNotSkip(t *testing.T) {
	inner := &flakyCollector{succeedAfter: 2}
	b := Wrap(inner, testConfig(), nil)

	ctx := context.Background()
	b.Collect(ctx)
	b.Collect(ctx)

	result, err := b.Collect(ctx)
	if err != nil {
		t.Fatalf("third call should reach the recovered inner: %v", err)
	}
	if result == nil {
		t.Fatal("nil result")
	}
	if b.Failures() != 0 {
		t.Errorf("failures = %d after success, want 0", b.Failures())
	}
}

func TestCancellationNotCountedAsFailure(t *testing.T) {
	inner := &flakyCollector{succeedAfter: -1, err: context.Canceled}
	b := Wrap(inner, testConfig(), nil)

	for i := 0; i < 5; i++ {
		if _, err := b.Collect(context.Background()); !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	}
	if b.Failures() != 0 {
		t.Errorf("failures = %d, want 0 for cancellations", b.Failures())
	}
}

func TestSkipWindowExpires(t *testing.T) {
	inner := &flakyCollector{succeedAfter: 3}
	b := Wrap(inner, Config{MaxFailures: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		b.Collect(ctx)
	}
	if _, err := b.Collect(ctx); !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected skip, got %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	result, err := b.Collect(ctx)
	if err != nil {
		t.Fatalf("after window: %v", err)
	}
	if result == nil {
		t.Fatal("nil result after recovery")
	}
}

func TestWrapDefaultsBadConfig(t *testing.T) {
	b := Wrap(&flakyCollector{}, Config{}, nil)
	if b.cfg.MaxFailures != DefaultConfig().MaxFailures {
		t.Errorf("MaxFailures = %d", b.cfg.MaxFailures)
	}
	if b.cfg.BaseDelay != DefaultConfig().BaseDelay {
		t.Errorf("BaseDelay = %v", b.cfg.BaseDelay)
	}
}
