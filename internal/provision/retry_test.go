package provision

import (
	"errors"
	"testing"
	"time"
)

func captureSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	original := sleep
	t.Cleanup(func() { sleep = original })

	var slept []time.Duration
	sleep = func(d time.Duration) { slept = append(slept, d) }
	return &slept
}

func TestRetryFirstTrySuccess(t *testing.T) {
	slept := captureSleeps(t)

	calls := 0
	err := Retry(3, time.Second, "op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(*slept) != 0 {
		t.Errorf("expected 0 sleeps, got %d", len(*slept))
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	// k failures before success must produce exactly k sleeps.
	for _, k := range []int{1, 2} {
		slept := captureSleeps(t)

		calls := 0
		err := Retry(3, 5*time.Second, "op", func() error {
			calls++
			if calls <= k {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("k=%d: Retry failed: %v", k, err)
		}
		if calls != k+1 {
			t.Errorf("k=%d: expected %d calls, got %d", k, k+1, calls)
		}
		if len(*slept) != k {
			t.Errorf("k=%d: expected %d sleeps, got %d", k, k, len(*slept))
		}
		for _, d := range *slept {
			if d != 5*time.Second {
				t.Errorf("k=%d: expected constant 5s backoff, got %s", k, d)
			}
		}
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	slept := captureSleeps(t)

	permanent := errors.New("permanent")
	calls := 0
	err := Retry(3, time.Second, "op", func() error {
		calls++
		return permanent
	})
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if !errors.Is(err, permanent) {
		t.Errorf("expected final error to wrap the last failure, got: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if len(*slept) != 2 {
		t.Errorf("expected 2 sleeps for 3 attempts, got %d", len(*slept))
	}
}

func TestRetryNonPositiveAttemptsRunsOnce(t *testing.T) {
	slept := captureSleeps(t)

	boom := errors.New("boom")
	calls := 0
	err := Retry(0, time.Second, "op", func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected final error to wrap the op failure, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(*slept) != 0 {
		t.Errorf("expected 0 sleeps, got %d", len(*slept))
	}
}

func TestRetrySingleAttemptNeverSleeps(t *testing.T) {
	slept := captureSleeps(t)

	err := Retry(1, time.Second, "op", func() error {
		return errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if len(*slept) != 0 {
		t.Errorf("expected 0 sleeps with a single attempt, got %d", len(*slept))
	}
}
