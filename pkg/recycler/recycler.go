// Package recycler coalesces concurrent calls of the same expensive function.
//
// Calls are keyed by the function's code pointer plus a hash of each
// argument value. While a call is in flight, every caller with the same key
// attaches to it and receives the same result (or error). A retention window
// keeps the result available for a while after completion.
//
// Keys are hashes, so two distinct calls can collide with a very small
// probability; callers must tolerate that. Because the code pointer is
// shared by every closure created at the same source location, and by
// method values of the same method on different receivers, anything that
// distinguishes calls must be passed as an argument.
//
// Results are shared, not copied: callers attached to the same call receive
// the same value, including the same pointers and slices.
package recycler

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// Func is the shape of a zero-argument recyclable call.
type Func[T any] func(ctx context.Context) (T, error)

// nilArgHash is the hash contribution of a nil argument.
const nilArgHash uint64 = 0x9e3779b97f4a7c15

// Recycler deduplicates calls returning T.
type Recycler[T any] struct {
	entries sync.Map // uint64 -> *entry[T]

	executions atomic.Int64
	attached   atomic.Int64
}

type entry[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// New creates an empty Recycler.
func New[T any]() *Recycler[T] {
	return &Recycler[T]{}
}

// Stats reports how many calls executed and how many attached to an existing call.
type Stats struct {
	Executions int64
	Attached   int64
}

// Stats returns the deduplication counters.
func (r *Recycler[T]) Stats() Stats {
	return Stats{Executions: r.executions.Load(), Attached: r.attached.Load()}
}

// RunOrAttach runs fn, or attaches to an in-flight call of fn.
// The entry is removed as soon as the call completes.
func (r *Recycler[T]) RunOrAttach(ctx context.Context, fn Func[T]) (T, error) {
	return r.run(ctx, Key(fn), fn, 0)
}

// RunOrAttachOrCache is RunOrAttach with the result kept for retention after completion.
func (r *Recycler[T]) RunOrAttachOrCache(ctx context.Context, fn Func[T], retention time.Duration) (T, error) {
	return r.run(ctx, Key(fn), fn, retention)
}

// RemoveFromCache evicts the zero-argument entry for fn. A call already in
// flight finishes normally, but new calls start a fresh execution.
func (r *Recycler[T]) RemoveFromCache(fn Func[T]) {
	r.entries.Delete(Key(fn))
}

// RunOrAttach1 is RunOrAttach for a one-argument function.
func RunOrAttach1[T, A any](ctx context.Context, r *Recycler[T], fn func(context.Context, A) (T, error), a A) (T, error) {
	return RunOrAttachOrCache1(ctx, r, fn, a, 0)
}

// RunOrAttachOrCache1 is RunOrAttachOrCache for a one-argument function.
func RunOrAttachOrCache1[T, A any](ctx context.Context, r *Recycler[T], fn func(context.Context, A) (T, error), a A, retention time.Duration) (T, error) {
	work := func(ctx context.Context) (T, error) { return fn(ctx, a) }
	return r.run(ctx, Key(fn, a), work, retention)
}

// RemoveFromCache1 evicts the entry for fn called with a.
func RemoveFromCache1[T, A any](r *Recycler[T], fn func(context.Context, A) (T, error), a A) {
	r.entries.Delete(Key(fn, a))
}

// RunOrAttach2 is RunOrAttach for a two-argument function.
func RunOrAttach2[T, A, B any](ctx context.Context, r *Recycler[T], fn func(context.Context, A, B) (T, error), a A, b B) (T, error) {
	return RunOrAttachOrCache2(ctx, r, fn, a, b, 0)
}

// RunOrAttachOrCache2 is RunOrAttachOrCache for a two-argument function.
func RunOrAttachOrCache2[T, A, B any](ctx context.Context, r *Recycler[T], fn func(context.Context, A, B) (T, error), a A, b B, retention time.Duration) (T, error) {
	work := func(ctx context.Context) (T, error) { return fn(ctx, a, b) }
	return r.run(ctx, Key(fn, a, b), work, retention)
}

// RemoveFromCache2 evicts the entry for fn called with a and b.
func RemoveFromCache2[T, A, B any](r *Recycler[T], fn func(context.Context, A, B) (T, error), a A, b B) {
	r.entries.Delete(Key(fn, a, b))
}

func (r *Recycler[T]) run(ctx context.Context, key uint64, work Func[T], retention time.Duration) (T, error) {
	e := &entry[T]{done: make(chan struct{})}
	if existing, loaded := r.entries.LoadOrStore(key, e); loaded {
		r.attached.Add(1)
		return existing.(*entry[T]).wait(ctx)
	}

	r.executions.Add(1)
	go r.execute(context.WithoutCancel(ctx), key, e, work, retention)
	return e.wait(ctx)
}

func (r *Recycler[T]) execute(ctx context.Context, key uint64, e *entry[T], work Func[T], retention time.Duration) {
	defer func() {
		if p := recover(); p != nil {
			e.err = fmt.Errorf("recycled call panicked: %v", p)
		}
		close(e.done)
		r.scheduleRemoval(key, e, retention)
	}()
	e.value, e.err = work(ctx)
}

// scheduleRemoval deletes e once retention has elapsed. Only e itself is
// removed; an entry that replaced it under the same key is left alone.
func (r *Recycler[T]) scheduleRemoval(key uint64, e *entry[T], retention time.Duration) {
	if retention <= 0 {
		r.entries.CompareAndDelete(key, e)
		return
	}
	time.AfterFunc(retention, func() {
		r.entries.CompareAndDelete(key, e)
	})
}

func (e *entry[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-e.done:
		return e.value, e.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Key computes the cache key of fn called with args.
func Key(fn any, args ...any) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(funcPointer(fn)))
	h.Write(buf[:])

	for _, arg := range args {
		binary.LittleEndian.PutUint64(buf[:], argHash(arg))
		h.Write(buf[:])
	}
	return h.Sum64()
}

func funcPointer(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic(fmt.Sprintf("recycler: key source is %T, not a function", fn))
	}
	return v.Pointer()
}

// argHash hashes an argument by value. Values hashstructure cannot walk
// (functions, channels) fall back to their identity.
func argHash(arg any) uint64 {
	if arg == nil {
		return nilArgHash
	}
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if v.IsNil() {
			return nilArgHash
		}
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return uint64(v.Pointer())
	}
	sum, err := hashstructure.Hash(arg, hashstructure.FormatV2, nil)
	if err != nil {
		return uint64(v.Type().Size()) ^ nilArgHash
	}
	return sum
}
