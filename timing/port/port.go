// Package port provides latency-delayed, named channels between pipeline
// stages.
//
// A Registry owns every channel. Stages obtain non-owning handles from it:
//
//	r := port.NewRegistry()
//	w := port.NewWriter[int](r, "A_2_B", 1)
//	rd := port.NewReader[int](r, "A_2_B", 2)
//	if err := r.Init(); err != nil { ... }
//
//	w.Write(42, 10)
//	rd.IsReady(12) // true
//
// Each channel has exactly one writer and any number of readers. Every
// reader receives its own copy of each value after its own latency.
package port

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// Cycle identifies one simulation tick.
type Cycle uint64

// Latency is a duration in cycles. Zero means the value is readable in the
// cycle it was written.
type Latency uint64

// Wiring errors reported by Registry.Init.
var (
	ErrNoWriter        = errors.New("port has no writer")
	ErrNoReader        = errors.New("port has no reader")
	ErrDuplicateWriter = errors.New("port has more than one writer")
	ErrTypeMismatch    = errors.New("port payload type mismatch")
)

type endpoint interface {
	payload() reflect.Type
	cleanUp(c Cycle)
	reset()
}

type channel struct {
	name    string
	writers []endpoint
	readers []endpoint
}

// Registry is the central owner of all channels of a simulation.
type Registry struct {
	channels map[string]*channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*channel)}
}

func (r *Registry) channel(name string) *channel {
	ch, ok := r.channels[name]
	if !ok {
		ch = &channel{name: name}
		r.channels[name] = ch
	}
	return ch
}

// Init checks the wiring of every channel. It reports channels without a
// writer or reader, channels with several writers, and handles of the same
// channel that disagree on the payload type.
func (r *Registry) Init() error {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		errs = append(errs, r.channels[name].check()...)
	}
	return errors.Join(errs...)
}

func (ch *channel) check() []error {
	var errs []error
	switch {
	case len(ch.writers) == 0:
		errs = append(errs, fmt.Errorf("%w: %s", ErrNoWriter, ch.name))
	case len(ch.writers) > 1:
		errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateWriter, ch.name))
	}
	if len(ch.readers) == 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrNoReader, ch.name))
	}

	var want reflect.Type
	for _, e := range append(append([]endpoint{}, ch.writers...), ch.readers...) {
		if want == nil {
			want = e.payload()
			continue
		}
		if e.payload() != want {
			errs = append(errs, fmt.Errorf("%w: %s carries %v and %v",
				ErrTypeMismatch, ch.name, want, e.payload()))
			break
		}
	}
	return errs
}

// CleanUp drops values that were readable at or before c but never read.
// It is called once at the end of every cycle.
func (r *Registry) CleanUp(c Cycle) {
	for _, ch := range r.channels {
		for _, rd := range ch.readers {
			rd.cleanUp(c)
		}
	}
}

// Reset discards all in-flight values and bandwidth accounting.
func (r *Registry) Reset() {
	for _, ch := range r.channels {
		for _, w := range ch.writers {
			w.reset()
		}
		for _, rd := range ch.readers {
			rd.reset()
		}
	}
}

// Writer is the sending end of a channel.
type Writer[T any] struct {
	ch        *channel
	bandwidth int

	cycle   Cycle
	written int
}

// NewWriter registers the writer of the named channel. At most bandwidth
// values may be written per cycle.
func NewWriter[T any](r *Registry, name string, bandwidth int) *Writer[T] {
	if bandwidth < 1 {
		bandwidth = 1
	}
	w := &Writer[T]{ch: r.channel(name), bandwidth: bandwidth}
	w.ch.writers = append(w.ch.writers, w)
	return w
}

// Name returns the channel name.
func (w *Writer[T]) Name() string { return w.ch.name }

// Write sends v in cycle c. Each reader sees it at c plus its latency.
// Exceeding the bandwidth of the channel panics.
func (w *Writer[T]) Write(v T, c Cycle) {
	if c != w.cycle {
		w.cycle = c
		w.written = 0
	}
	w.written++
	if w.written > w.bandwidth {
		panic(fmt.Sprintf("port %s: more than %d writes in cycle %d",
			w.ch.name, w.bandwidth, c))
	}

	for _, e := range w.ch.readers {
		if rd, ok := e.(*Reader[T]); ok {
			rd.push(v, c)
		}
	}
}

func (w *Writer[T]) payload() reflect.Type { return reflect.TypeFor[T]() }
func (w *Writer[T]) cleanUp(Cycle)         {}

func (w *Writer[T]) reset() {
	w.cycle = 0
	w.written = 0
}

type slot[T any] struct {
	value T
	ready Cycle
}

// Reader is one receiving end of a channel.
type Reader[T any] struct {
	ch      *channel
	latency Latency
	queue   []slot[T]
}

// NewReader registers a reader of the named channel with its own latency.
func NewReader[T any](r *Registry, name string, latency Latency) *Reader[T] {
	rd := &Reader[T]{ch: r.channel(name), latency: latency}
	rd.ch.readers = append(rd.ch.readers, rd)
	return rd
}

// Name returns the channel name.
func (rd *Reader[T]) Name() string { return rd.ch.name }

// Latency returns the delay between a write and its visibility here.
func (rd *Reader[T]) Latency() Latency { return rd.latency }

// IsReady returns true if a value scheduled for exactly cycle c is waiting.
// It does not consume the value.
func (rd *Reader[T]) IsReady(c Cycle) bool {
	rd.dropBefore(c)
	return len(rd.queue) > 0 && rd.queue[0].ready == c
}

// Read consumes the oldest value scheduled for cycle c. Reading a channel
// that is not ready panics.
func (rd *Reader[T]) Read(c Cycle) T {
	if !rd.IsReady(c) {
		panic(fmt.Sprintf("port %s: read in cycle %d with no data ready",
			rd.ch.name, c))
	}
	v := rd.queue[0].value
	var zero slot[T]
	rd.queue[0] = zero
	rd.queue = rd.queue[1:]
	return v
}

// Pending returns the number of values in flight towards this reader.
func (rd *Reader[T]) Pending() int { return len(rd.queue) }

func (rd *Reader[T]) push(v T, c Cycle) {
	rd.queue = append(rd.queue, slot[T]{value: v, ready: c + Cycle(rd.latency)})
}

func (rd *Reader[T]) dropBefore(c Cycle) {
	n := 0
	for n < len(rd.queue) && rd.queue[n].ready < c {
		n++
	}
	if n > 0 {
		rd.queue = rd.queue[n:]
	}
}

func (rd *Reader[T]) payload() reflect.Type { return reflect.TypeFor[T]() }

func (rd *Reader[T]) cleanUp(c Cycle) {
	rd.dropBefore(c + 1)
}

func (rd *Reader[T]) reset() {
	rd.queue = nil
}
