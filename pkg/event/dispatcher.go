// Package event implements the per-scope typed event bus.
//
// A Dispatcher is one scope: every tree node owns one and the window owns one
// more. Emission is fire-and-forget. A value reaches exactly the subscribers
// that are waiting for its type at the moment Emit runs; when nobody waits, the
// value is dropped. Nothing is queued.
//
//	w := event.Listen[event.PointerDown](d)
//	defer w.Cancel()
//	select {
//	case ev := <-w.C():
//	    ...
//	case <-ctx.Done():
//	}
package event

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Cloner is implemented by event values that need a deep copy per subscriber.
// Clone must return a value of the same dynamic type as the receiver.
type Cloner interface {
	Clone() any
}

var nextDispatcherID atomic.Uint64

// Dispatcher is a single event scope. The zero value is not usable; create
// scopes with NewDispatcher.
type Dispatcher struct {
	id      uint64
	mu      sync.Mutex
	waiters map[reflect.Type]map[uint64]func(any)
	nextID  uint64
}

// NewDispatcher creates an empty scope.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		id:      nextDispatcherID.Add(1),
		waiters: make(map[reflect.Type]map[uint64]func(any)),
	}
}

// ID returns a process-unique identifier for the scope.
func (d *Dispatcher) ID() uint64 {
	return d.id
}

// Emit delivers a copy of v to every subscriber currently waiting for v's
// exact dynamic type. It never blocks.
func (d *Dispatcher) Emit(v any) {
	if v == nil {
		return
	}
	typ := reflect.TypeOf(v)

	d.mu.Lock()
	set := d.waiters[typ]
	if len(set) == 0 {
		d.mu.Unlock()
		return
	}
	delete(d.waiters, typ)
	d.mu.Unlock()

	for _, deliver := range set {
		deliver(clone(v))
	}
}

// Waiting returns how many subscribers are waiting for values of v's type.
func (d *Dispatcher) Waiting(v any) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiters[reflect.TypeOf(v)])
}

func (d *Dispatcher) register(typ reflect.Type, deliver func(any)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	set := d.waiters[typ]
	if set == nil {
		set = make(map[uint64]func(any))
		d.waiters[typ] = set
	}
	set[id] = deliver
	return id
}

func (d *Dispatcher) unregister(typ reflect.Type, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set := d.waiters[typ]
	delete(set, id)
	if len(set) == 0 {
		delete(d.waiters, typ)
	}
}

func clone(v any) any {
	if c, ok := v.(Cloner); ok {
		return c.Clone()
	}
	return v
}

// Waiter is a one-shot subscription for the next value of type T.
type Waiter[T any] struct {
	d    *Dispatcher
	typ  reflect.Type
	id   uint64
	ch   chan T
	once sync.Once
}

// Listen registers interest in the next emission of T on d. Registration
// happens before Listen returns, so an Emit that starts afterwards is
// guaranteed to be observed.
func Listen[T any](d *Dispatcher) *Waiter[T] {
	w := &Waiter[T]{
		d:   d,
		typ: reflect.TypeFor[T](),
		ch:  make(chan T, 1),
	}
	// Emit removes the whole waiter set before delivering, so deliver runs at
	// most once and the buffered send never blocks.
	w.id = d.register(w.typ, func(v any) { w.ch <- v.(T) })
	return w
}

// C returns the channel that receives the value. It yields at most once.
func (w *Waiter[T]) C() <-chan T {
	return w.ch
}

// Cancel withdraws the subscription. It is safe to call more than once and
// after the value has been received.
func (w *Waiter[T]) Cancel() {
	w.once.Do(func() {
		w.d.unregister(w.typ, w.id)
	})
}

// Recv suspends until the next emission of T on d or until ctx is done.
func Recv[T any](ctx context.Context, d *Dispatcher) (T, error) {
	w := Listen[T](d)
	defer w.Cancel()
	select {
	case v := <-w.C():
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
