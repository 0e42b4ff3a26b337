package observable

import "sync"

// Reader is the read-only view of a Value handed to external listeners.
type Reader[T any] interface {
	Get() T
	Subscribe() *Subscription[T]
}

// Value holds a single value and broadcasts every change to its subscribers.
// Each subscriber only ever sees the latest value: a slow reader skips the
// intermediate ones instead of blocking Set.
type Value[T any] struct {
	mu   sync.Mutex
	val  T
	set  bool
	subs map[*Subscription[T]]struct{}
}

type Subscription[T any] struct {
	ch    chan T
	owner *Value[T]
	once  sync.Once
}

// NewValue returns a Value that already holds initial; new subscribers
// receive it immediately.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		val:  initial,
		set:  true,
		subs: make(map[*Subscription[T]]struct{}),
	}
}

// NewEmpty returns a Value whose subscribers receive nothing until the first Set.
func NewEmpty[T any]() *Value[T] {
	return &Value[T]{
		subs: make(map[*Subscription[T]]struct{}),
	}
}

func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val
}

func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.val = val
	v.set = true
	for sub := range v.subs {
		sub.offer(val)
	}
}

func (v *Value[T]) Subscribe() *Subscription[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	sub := &Subscription[T]{
		ch:    make(chan T, 1),
		owner: v,
	}
	if v.set {
		sub.ch <- v.val
	}
	v.subs[sub] = struct{}{}
	return sub
}

// Subscribers reports how many subscriptions are still open.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// offer replaces any undelivered value. Callers hold owner.mu.
func (s *Subscription[T]) offer(val T) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- val
}

// C returns the channel the subscriber reads updates from. It is closed by Close.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.owner.mu.Lock()
		defer s.owner.mu.Unlock()
		delete(s.owner.subs, s)
		close(s.ch)
	})
}
