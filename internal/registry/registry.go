// Package registry keeps process-wide lookup tables on top of lock-free hash maps.
package registry

import "github.com/alphadose/haxmap"

// Registry is a concurrent map from string keys to values.
type Registry[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	GetOrAdd(key string, value func() T) (T, bool)
	Del(key string)
	Len() int
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(key string) (T, bool) {
	return r.values.Get(key)
}

func (r *registry[T]) Set(key string, value T) {
	r.values.Set(key, value)
}

func (r *registry[T]) GetOrAdd(key string, valueFn func() T) (T, bool) {
	return r.values.GetOrCompute(key, valueFn)
}

func (r *registry[T]) Del(key string) {
	r.values.Del(key)
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}
