package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Computing layout...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("Rendering svg...")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	got := out.String()
	for _, want := range []string{"Computing layout...", "Rendering svg..."} {
		if !strings.Contains(got, want) {
			t.Errorf("spinner output missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "\r") {
		t.Errorf("spinner should end by clearing the line, got %q", got[max(0, len(got)-20):])
	}
	// Stop cancels the spinner's own context.
	if !s.Cancelled() {
		t.Error("Cancelled() = false after Stop")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerTo(ctx, &syncBuffer{}, "Testing with context...")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerTo(ctx, &syncBuffer{}, "Testing with timeout...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinnerTo(context.Background(), &syncBuffer{}, "Testing idempotent stop...")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopBeforeDraw(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Quick")
	s.Start()
	s.Stop()

	if got := out.String(); got != "" {
		t.Errorf("nothing drawn, nothing to clear; got %q", got)
	}
}
