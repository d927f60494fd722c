package endpoint

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

func TestFromChunks(t *testing.T) {
	s := FromChunks("a", "b", "c")

	chunks, err := collect(t, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 || chunks[0] != "a" || chunks[1] != "b" || chunks[2] != "c" {
		t.Errorf("chunks = %q, want [a b c]", chunks)
	}

	// Not restartable: EOF sticks.
	for i := 0; i < 2; i++ {
		if _, err := s.Recv(); !errors.Is(err, io.EOF) {
			t.Errorf("Recv after EOF = %v, want io.EOF", err)
		}
	}
}

func TestFromChunks_Empty(t *testing.T) {
	s := FromChunks()
	if _, err := s.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("Recv = %v, want io.EOF", err)
	}
}

func TestNewStream_ProducerChunks(t *testing.T) {
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		for _, c := range []string{"x", "y"} {
			if err := emit(c); err != nil {
				return err
			}
		}
		return nil
	})

	chunks, err := collect(t, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 || chunks[0] != "x" || chunks[1] != "y" {
		t.Errorf("chunks = %q, want [x y]", chunks)
	}
}

func TestNewStream_ProducerErrorSticks(t *testing.T) {
	sentinel := errors.New("decode failed")
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		if err := emit("partial"); err != nil {
			return err
		}
		return sentinel
	})

	chunks, err := collect(t, s)
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
	if len(chunks) != 1 || chunks[0] != "partial" {
		t.Errorf("chunks = %q, want [partial]", chunks)
	}
	if _, err := s.Recv(); !errors.Is(err, sentinel) {
		t.Errorf("second Recv = %v, want sticky %v", err, sentinel)
	}
}

func TestNewStream_IsLazy(t *testing.T) {
	var emitted atomic.Int64

	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		for {
			emitted.Add(1)
			if err := emit("tick"); err != nil {
				return err
			}
		}
	})
	defer s.Close()

	if _, err := s.Recv(); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	// One chunk delivered, at most one more waiting for a consumer.
	if n := emitted.Load(); n > 2 {
		t.Errorf("producer ran ahead: emitted %d chunks after one Recv", n)
	}
}

func TestStream_CloseStopsProducer(t *testing.T) {
	stopped := make(chan error, 1)

	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		for {
			if err := emit("tick"); err != nil {
				stopped <- err
				return err
			}
		}
	})

	if _, err := s.Recv(); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-stopped:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("producer error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not observe Close")
	}

	if _, err := s.Recv(); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Recv after Close = %v, want ErrStreamClosed", err)
	}

	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestStream_ParentCancelEndsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := NewStream(ctx, func(ctx context.Context, emit EmitFunc) error {
		<-ctx.Done()
		return ctx.Err()
	})

	cancel()

	_, err := s.Recv()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Recv = %v, want context.Canceled", err)
	}
}

func TestStream_ChunksBreakCloses(t *testing.T) {
	stopped := make(chan struct{})

	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		defer close(stopped)
		for i := 0; ; i++ {
			if err := emit("n"); err != nil {
				return err
			}
		}
	})

	count := 0
	for _, err := range s.Chunks() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count == 3 {
			break
		}
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("breaking out of Chunks did not stop the producer")
	}
}

func TestStream_ChunksYieldsError(t *testing.T) {
	sentinel := errors.New("bad")
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		return sentinel
	})

	var gotErr error
	for _, err := range s.Chunks() {
		if err != nil {
			gotErr = err
		}
	}
	if !errors.Is(gotErr, sentinel) {
		t.Errorf("err = %v, want %v", gotErr, sentinel)
	}
}

func TestReadAll(t *testing.T) {
	text, err := ReadAll(FromChunks("hello", " ", "there"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello there" {
		t.Errorf("text = %q, want %q", text, "hello there")
	}
}

func TestReadAll_PartialOnError(t *testing.T) {
	sentinel := errors.New("cut off")
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		if err := emit("partial"); err != nil {
			return err
		}
		return sentinel
	})

	text, err := ReadAll(s)
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want %v", err, sentinel)
	}
	if text != "partial" {
		t.Errorf("text = %q, want %q", text, "partial")
	}
}

func TestWatch(t *testing.T) {
	var seen []string
	var ends []error

	s := Watch(FromChunks("a", "b"),
		func(c string) { seen = append(seen, c) },
		func(err error) { ends = append(ends, err) },
	)

	text, err := ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if text != "ab" {
		t.Errorf("text = %q, want ab", text)
	}
	if len(seen) != 2 {
		t.Errorf("onChunk called %d times, want 2", len(seen))
	}
	if len(ends) != 1 || ends[0] != nil {
		t.Errorf("onEnd calls = %v, want exactly one nil", ends)
	}
}

func TestWatch_ProducerError(t *testing.T) {
	sentinel := errors.New("backend died")
	inner := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		return sentinel
	})

	var ends []error
	s := Watch(inner, nil, func(err error) { ends = append(ends, err) })

	if _, err := s.Recv(); !errors.Is(err, sentinel) {
		t.Fatalf("Recv = %v, want %v", err, sentinel)
	}
	s.Close()

	if len(ends) != 1 || !errors.Is(ends[0], sentinel) {
		t.Errorf("onEnd calls = %v, want exactly one %v", ends, sentinel)
	}
}

func TestWatch_CloseStopsInner(t *testing.T) {
	stopped := make(chan struct{})
	inner := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		defer close(stopped)
		for {
			if err := emit("x"); err != nil {
				return err
			}
		}
	})

	ended := make(chan error, 1)
	s := Watch(inner, nil, func(err error) { ended <- err })

	if _, err := s.Recv(); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	s.Close()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("closing the watched stream did not stop the inner producer")
	}
	if err := <-ended; !errors.Is(err, ErrStreamClosed) {
		t.Errorf("onEnd = %v, want ErrStreamClosed", err)
	}
	if !IsAbort(ErrStreamClosed) {
		t.Error("IsAbort(ErrStreamClosed) = false, want true")
	}
}

func TestWatch_CloseDuringPullEndsAfterLastChunk(t *testing.T) {
	inner := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		if err := emit("a"); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	})

	chunks := 0
	ended := make(chan int, 1)
	var endErr error
	s := Watch(inner,
		func(string) { chunks++ },
		func(err error) {
			endErr = err
			ended <- chunks
		},
	)

	if _, err := s.Recv(); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	pulled := make(chan error, 1)
	go func() {
		_, err := s.Recv()
		pulled <- err
	}()

	time.Sleep(10 * time.Millisecond)
	s.Close()

	if err := <-pulled; !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Recv = %v, want ErrStreamClosed", err)
	}
	select {
	case n := <-ended:
		if n != 1 {
			t.Errorf("onEnd saw %d chunks, want 1", n)
		}
		if !errors.Is(endErr, ErrStreamClosed) {
			t.Errorf("onEnd = %v, want ErrStreamClosed", endErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onEnd was not called")
	}
}
