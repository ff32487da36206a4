package hal

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignalCollapses(t *testing.T) {
	s := NewSignal()
	s.Raise()
	s.Raise()
	s.Raise()
	require.True(t, s.Pending())
	require.NoError(t, s.Wait(context.Background()))
	require.False(t, s.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestTimeoutAfter(t *testing.T) {
	ctx := context.Background()
	err := TimeoutAfter(ctx, 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Equal(t, ErrTimeout, err)

	err = TimeoutAfter(ctx, time.Second, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	err = TimeoutAfter(ctx, time.Second, func(ctx context.Context) error {
		return io.ErrUnexpectedEOF
	})
	require.Equal(t, io.ErrUnexpectedEOF, err)

	parent, cancel := context.WithCancel(ctx)
	cancel()
	err = TimeoutAfter(parent, time.Second, func(ctx context.Context) error {
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDelay(t *testing.T) {
	start := time.Now()
	require.NoError(t, Delay(context.Background(), 20*time.Millisecond))
	require.True(t, time.Since(start) >= 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Delay(ctx, time.Hour), context.Canceled)
}

type drainWriter struct {
	bytes.Buffer
	drained int
}

func (w *drainWriter) Drain() error {
	w.drained++
	return nil
}

func TestSinkFlush(t *testing.T) {
	var w drainWriter
	s := NewSink(&w)
	n, err := s.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Zero(t, w.Len(), "buffered until flush")
	require.NoError(t, s.Flush())
	require.Equal(t, []byte{1, 2, 3}, w.Bytes())
	require.Equal(t, 1, w.drained)
}

func peekAll(t *testing.T, r *RxRing) []byte {
	var out []byte
	require.NoError(t, r.Peek(func(filled []byte, remaining int) error {
		out = append(out, filled...)
		require.Equal(t, len(r.buf)-len(filled), remaining)
		return nil
	}))
	return out
}

func TestRxRing(t *testing.T) {
	pr, pw := io.Pipe()
	wake := NewSignal()
	ring := NewRxRing(pr, 4, wake)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ring.Run(ctx) }()

	require.NoError(t, ring.Start())
	_, err := pw.Write([]byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, wake.Wait(ctx))
	require.Equal(t, []byte{1, 2}, peekAll(t, ring))

	// bytes landing between Peek and Restart survive.
	_, err = pw.Write([]byte{3})
	require.NoError(t, err)
	require.NoError(t, wake.Wait(ctx))
	ring.Restart()
	require.Equal(t, []byte{3}, peekAll(t, ring))
	ring.Restart()
	require.Empty(t, peekAll(t, ring))

	// a full region holds the receiver until Restart.
	go pw.Write([]byte{4, 5, 6, 7, 8, 9})
	require.NoError(t, wake.Wait(ctx))
	require.Eventually(t, func() bool { return len(peekAll(t, ring)) == 4 }, time.Second, time.Millisecond)
	ring.Restart()
	require.Eventually(t, func() bool { return len(peekAll(t, ring)) == 2 }, time.Second, time.Millisecond)
	require.Equal(t, []byte{8, 9}, peekAll(t, ring))
	ring.Restart()

	pw.CloseWithError(io.ErrClosedPipe)
	require.ErrorIs(t, <-done, io.ErrClosedPipe)
	require.ErrorIs(t, ring.Peek(func([]byte, int) error { return nil }), io.ErrClosedPipe)
	require.ErrorIs(t, ring.Start(), io.ErrClosedPipe)
}

func TestRxRingDropsWhenStopped(t *testing.T) {
	pr, pw := io.Pipe()
	wake := NewSignal()
	ring := NewRxRing(pr, 0, wake)
	require.Len(t, ring.buf, DefaultRxRingSize)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ring.Run(ctx) }()

	_, err := pw.Write([]byte{1})
	require.NoError(t, err)
	// the second write returns once the first byte has been handled.
	_, err = pw.Write([]byte{2})
	require.NoError(t, err)

	require.NoError(t, ring.Start())
	_, err = pw.Write([]byte{3})
	require.NoError(t, err)
	require.NoError(t, wake.Wait(ctx))
	require.Eventually(t, func() bool {
		got := peekAll(t, ring)
		return len(got) > 0 && got[len(got)-1] == 3
	}, time.Second, time.Millisecond)
	require.NotContains(t, peekAll(t, ring), byte(1))

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
