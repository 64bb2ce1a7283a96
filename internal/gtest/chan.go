package gtest

import (
	"os"
	"strconv"
	"testing"
	"time"
)

// timeFactor scales every timeout in this package.
// Set GAVID_TEST_TIME_FACTOR on slow machines.
var timeFactor = func() float64 {
	v := os.Getenv("GAVID_TEST_TIME_FACTOR")
	if v == "" {
		return 1
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		panic("GAVID_TEST_TIME_FACTOR must be a positive number, got " + strconv.Quote(v))
	}
	return f
}()

// ScaleMs returns ms milliseconds, scaled by the test time factor.
func ScaleMs(ms int64) time.Duration {
	return time.Duration(float64(ms) * timeFactor * float64(time.Millisecond))
}

// ReceiveOrTimeout returns the next value from ch,
// failing the test if none arrives within timeout.
func ReceiveOrTimeout[T any](t testing.TB, ch <-chan T, timeout time.Duration) T {
	t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("no value received within %s", timeout)
	}

	panic("unreachable")
}

// ReceiveSoon is ReceiveOrTimeout with a short default timeout.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	return ReceiveOrTimeout(t, ch, ScaleMs(100))
}

// NotSending fails the test if ch has a value ready.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("expected no value, received %v", v)
	default:
	}
}
