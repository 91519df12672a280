package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Writer persists values of one Bucket from a background goroutine, so
// callers never wait on the store. A queued value that has not reached the
// store yet is replaced by a newer value for the same name.
type Writer struct {
	bucket  *Bucket
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]string
	order   []string
	busy    bool
	closed  bool
	waiters []chan struct{}

	wake chan struct{}
	done chan struct{}
}

// NewWriter starts a writer over bucket. Each store write is bounded by
// timeout.
func NewWriter(bucket *Bucket, timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	writer := &Writer{
		bucket:  bucket,
		timeout: timeout,
		pending: make(map[string]string),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go writer.run()
	return writer
}

// SetString queues a raw value. Values queued after Close are dropped.
func (writer *Writer) SetString(name, value string) {
	writer.mu.Lock()
	if writer.closed {
		writer.mu.Unlock()
		return
	}
	if _, queued := writer.pending[name]; !queued {
		writer.order = append(writer.order, name)
	}
	writer.pending[name] = value
	writer.mu.Unlock()

	select {
	case writer.wake <- struct{}{}:
	default:
	}
}

// SetInt queues a decimal integer.
func (writer *Writer) SetInt(name string, value int) {
	writer.SetString(name, strconv.Itoa(value))
}

// SetInt64 queues a decimal int64.
func (writer *Writer) SetInt64(name string, value int64) {
	writer.SetString(name, strconv.FormatInt(value, 10))
}

// SetJSON queues value as JSON.
func (writer *Writer) SetJSON(name string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", writer.bucket.Key(name), err)
	}
	writer.SetString(name, string(encoded))
	return nil
}

// Flush waits until every value queued so far has been written or ctx ends.
func (writer *Writer) Flush(ctx context.Context) error {
	writer.mu.Lock()
	if len(writer.order) == 0 && !writer.busy {
		writer.mu.Unlock()
		return nil
	}
	drained := make(chan struct{})
	writer.waiters = append(writer.waiters, drained)
	writer.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush %s: %w", writer.bucket.namespace, ctx.Err())
	}
}

// Close writes what is still queued and stops the goroutine.
func (writer *Writer) Close() {
	writer.mu.Lock()
	if !writer.closed {
		writer.closed = true
		select {
		case writer.wake <- struct{}{}:
		default:
		}
	}
	writer.mu.Unlock()
	<-writer.done
}

func (writer *Writer) run() {
	defer close(writer.done)
	for {
		name, value, ok := writer.next()
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writer.timeout)
		// Failures are logged and counted by the bucket.
		_ = writer.bucket.SetString(ctx, name, value)
		cancel()
	}
}

// next blocks until a value is queued. It reports false once the writer is
// closed and drained.
func (writer *Writer) next() (string, string, bool) {
	writer.mu.Lock()
	defer writer.mu.Unlock()
	writer.busy = false
	for len(writer.order) == 0 {
		for _, drained := range writer.waiters {
			close(drained)
		}
		writer.waiters = nil
		if writer.closed {
			return "", "", false
		}
		writer.mu.Unlock()
		<-writer.wake
		writer.mu.Lock()
	}

	name := writer.order[0]
	writer.order = writer.order[1:]
	value := writer.pending[name]
	delete(writer.pending, name)
	writer.busy = true
	return name, value, true
}
