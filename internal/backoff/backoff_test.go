package backoff

import (
	"testing"
	"time"
)

func TestExponentialBounds(t *testing.T) {
	s := Exponential{}
	base := 300 * time.Millisecond
	max := 10 * time.Second

	for attempt := 0; attempt < 5; attempt++ {
		for i := 0; i < 50; i++ {
			d := s.Delay(attempt, base, max, 2.0, 0.1)

			lower := time.Duration(float64(base) * pow(2.0, attempt))
			if lower > max {
				lower = max
			}
			upper := time.Duration(float64(lower) * 1.1)
			if upper > max {
				upper = max
			}

			if d < lower || d > upper {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, d, lower, upper)
			}
		}
	}
}

func TestExponentialCap(t *testing.T) {
	s := Exponential{}
	d := s.Delay(20, time.Second, 10*time.Second, 2.0, 0.1)
	if d != 10*time.Second {
		t.Errorf("expected cap of 10s, got %v", d)
	}
}

func TestExponentialNegativeAttempt(t *testing.T) {
	s := Exponential{}
	d := s.Delay(-5, 100*time.Millisecond, time.Second, 2.0, 0)
	if d != 100*time.Millisecond {
		t.Errorf("expected base delay for negative attempt, got %v", d)
	}
}

func TestExponentialZeroJitter(t *testing.T) {
	s := Exponential{}
	for attempt := 0; attempt < 4; attempt++ {
		d := s.Delay(attempt, 100*time.Millisecond, 10*time.Second, 2.0, 0)
		want := time.Duration(float64(100*time.Millisecond) * pow(2.0, attempt))
		if d != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, d)
		}
	}
}

func TestDecorrelatedBounds(t *testing.T) {
	s := Decorrelated{}
	base := 100 * time.Millisecond
	max := 5 * time.Second

	if d := s.Delay(0, base, max, 0, 0); d != base {
		t.Errorf("attempt 0: expected %v, got %v", base, d)
	}

	for attempt := 1; attempt < 6; attempt++ {
		for i := 0; i < 50; i++ {
			d := s.Delay(attempt, base, max, 0, 0)
			if d < base || d > max {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, d, base, max)
			}
		}
	}
}

func TestClampJitter(t *testing.T) {
	if clampJitter(-0.5) != 0 {
		t.Error("negative jitter should clamp to 0")
	}
	if clampJitter(1.5) != 1 {
		t.Error("jitter > 1 should clamp to 1")
	}
	if clampJitter(0.25) != 0.25 {
		t.Error("in-range jitter should pass through")
	}
}
