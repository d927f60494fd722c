package endpoint

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrStreamClosed is returned by Recv after the consumer closed the stream.
var ErrStreamClosed = errors.New("endpoint: stream closed")

// EmitFunc hands one chunk to the consumer. It blocks until the chunk is
// pulled and returns the context error if the stream is closed first.
type EmitFunc func(chunk string) error

// ProduceFunc generates the chunks of a stream. Returning nil ends the stream
// normally; any other error is reported to the consumer.
type ProduceFunc func(ctx context.Context, emit EmitFunc) error

// Stream is a lazy, single-consumer sequence of text chunks. It is finite and
// cannot be restarted: once Recv reports a terminal error, every later call
// reports the same error.
//
// A consumer must either read until Recv returns an error or call Close.
type Stream struct {
	mu   sync.Mutex
	next func() (string, error)
	err  error

	closed   atomic.Bool
	stopOnce sync.Once
	stop     func()
}

func newStream(next func() (string, error), stop func()) *Stream {
	return &Stream{next: next, stop: stop}
}

// FromChunks returns a stream that yields the given chunks in order and then
// io.EOF.
func FromChunks(chunks ...string) *Stream {
	i := 0
	return newStream(func() (string, error) {
		if i >= len(chunks) {
			return "", io.EOF
		}
		c := chunks[i]
		i++
		return c, nil
	}, nil)
}

// NewStream starts produce on its own goroutine and returns the consuming
// side. Chunks are handed over unbuffered, so produce never runs more than
// one chunk ahead of the consumer. Closing the stream cancels the context
// passed to produce.
func NewStream(ctx context.Context, produce ProduceFunc) *Stream {
	ctx, cancel := context.WithCancel(ctx)

	ch := make(chan string)
	done := make(chan struct{})
	var produceErr error

	go func() {
		defer close(done)
		produceErr = produce(ctx, func(chunk string) error {
			select {
			case ch <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	next := func() (string, error) {
		select {
		case c := <-ch:
			return c, nil
		case <-done:
			if produceErr != nil {
				return "", produceErr
			}
			return "", io.EOF
		}
	}

	return newStream(next, cancel)
}

// Recv returns the next chunk, or io.EOF once the stream is exhausted.
func (s *Stream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	if s.closed.Load() {
		s.err = ErrStreamClosed
		return "", s.err
	}

	chunk, err := s.next()
	if s.closed.Load() {
		// Close raced with a pending receive; honor the close.
		s.err = ErrStreamClosed
		return "", s.err
	}
	if err != nil {
		s.err = err
		s.release()
		return "", err
	}
	return chunk, nil
}

// Close unsubscribes from the stream. The producer observes cancellation and
// stops. Close is safe to call from any goroutine and more than once.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.release()
	return nil
}

func (s *Stream) release() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// Chunks returns an iterator over the remaining chunks. A terminal error other
// than io.EOF is yielded once with an empty chunk. Breaking out of the loop
// closes the stream.
func (s *Stream) Chunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// ReadAll drains s and returns the concatenated text. The stream is closed
// when ReadAll returns.
func ReadAll(s *Stream) (string, error) {
	var b strings.Builder
	for chunk, err := range s.Chunks() {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

// Watch returns a stream that yields the chunks of s unchanged. onChunk is
// called for every chunk handed to the consumer. onEnd is called exactly once
// with the terminal error: nil after a clean end, ErrStreamClosed when the
// consumer closed early. Either callback may be nil.
//
// The callbacks never run concurrently, and onEnd runs after the last
// onChunk. A Close that lands while a chunk is being pulled defers onEnd
// until that pull returns.
func Watch(s *Stream, onChunk func(chunk string), onEnd func(err error)) *Stream {
	var once sync.Once
	end := func(err error) {
		once.Do(func() {
			if onEnd != nil {
				onEnd(err)
			}
		})
	}

	var (
		mu      sync.Mutex
		pulling bool
		closed  bool
	)

	next := func() (string, error) {
		mu.Lock()
		pulling = true
		mu.Unlock()

		chunk, err := s.Recv()
		if err == nil && onChunk != nil {
			onChunk(chunk)
		}

		mu.Lock()
		pulling = false
		closedDuring := closed
		mu.Unlock()

		switch {
		case closedDuring:
			end(ErrStreamClosed)
		case errors.Is(err, io.EOF):
			end(nil)
		case err != nil:
			end(err)
		}
		if err != nil {
			return "", err
		}
		return chunk, nil
	}

	return newStream(next, func() {
		s.Close()
		mu.Lock()
		closed = true
		busy := pulling
		mu.Unlock()
		if !busy {
			end(ErrStreamClosed)
		}
	})
}
