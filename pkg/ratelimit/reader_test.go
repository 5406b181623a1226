package ratelimit

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	t.Run("ValidBytesPerSecond", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		if limiter == nil {
			t.Fatal("NewLimiter() returned nil for valid input")
		}
		if limiter.BytesPerSecond() != 1024*1024 {
			t.Errorf("BytesPerSecond() = %d, want %d", limiter.BytesPerSecond(), 1024*1024)
		}
		if limiter.Burst() != 1024*1024 {
			t.Errorf("Burst() = %d, want %d", limiter.Burst(), 1024*1024)
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		for _, bps := range []int64{0, -100} {
			if limiter := NewLimiter(bps); limiter != nil {
				t.Errorf("NewLimiter(%d) should return nil", bps)
			}
		}
	})

	t.Run("SmallBytesPerSecond", func(t *testing.T) {
		limiter := NewLimiter(1000)
		if limiter.Burst() < minBurst {
			t.Errorf("Burst() = %d, want at least %d", limiter.Burst(), minBurst)
		}
	})

	t.Run("NilBytesPerSecond", func(t *testing.T) {
		var limiter *Limiter
		if limiter.BytesPerSecond() != 0 {
			t.Error("nil limiter should report 0")
		}
	})
}

func TestNewReader(t *testing.T) {
	t.Run("WithLimiter", func(t *testing.T) {
		reader := NewReader(context.Background(), strings.NewReader("test"), NewLimiter(1024*1024))
		if _, ok := reader.(*Reader); !ok {
			t.Error("NewReader() should return *Reader when limiter is provided")
		}
	})

	t.Run("NilLimiter", func(t *testing.T) {
		base := strings.NewReader("test")
		if reader := NewReader(context.Background(), base, nil); reader != base {
			t.Error("NewReader() with nil limiter should return the original reader")
		}
	})
}

func TestReader_ReadsEverything(t *testing.T) {
	data := bytes.Repeat([]byte("cmpf"), 50000)
	reader := NewReader(context.Background(), bytes.NewReader(data), NewLimiter(100*1024*1024))

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read %d bytes, want %d", len(got), len(data))
	}
}

func TestReader_Throttles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}

	// burst is 64KB at this rate, the remaining 64KB take about a second
	limiter := NewLimiter(64 * 1024)
	data := make([]byte, 128*1024)
	reader := NewReader(context.Background(), bytes.NewReader(data), limiter)

	start := time.Now()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("copy took %v, expected throttling", elapsed)
	}
}

func TestReader_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewReader(ctx, strings.NewReader("data"), NewLimiter(1024))
	if _, err := reader.Read(make([]byte, 4)); err != context.Canceled {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}
