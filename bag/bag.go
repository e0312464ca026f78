// Package bag provides the layered, typed configuration store threaded through
// an operation invocation.
//
// A Bag is a stack of layers. Client and operation plugins contribute frozen
// layers that may be shared across concurrent invocations; each Bag also owns a
// private, mutable interceptor-state layer on top of the stack. Loads search
// from the top down, so later layers override earlier ones.
package bag

import "fmt"

type keyID struct {
	name string
}

// Key identifies a typed value in a Bag. Keys compare by identity: two keys
// created with the same name are distinct.
type Key[T any] struct {
	id *keyID
}

// NewKey creates a key. The name is used only for diagnostics.
func NewKey[T any](name string) Key[T] {
	return Key[T]{id: &keyID{name: name}}
}

// Name returns the diagnostic name of the key.
func (k Key[T]) Name() string {
	if k.id == nil {
		return "<nil>"
	}
	return k.id.name
}

// unset masks values in lower layers.
type unset struct{}

// Layer is a named set of values. A frozen layer is read-only.
type Layer struct {
	name   string
	values map[*keyID]any
	frozen bool
}

// NewLayer creates an empty, mutable layer.
func NewLayer(name string) *Layer {
	return &Layer{name: name, values: make(map[*keyID]any)}
}

// Name returns the layer name.
func (l *Layer) Name() string {
	return l.name
}

// Len returns the number of entries, including unset markers.
func (l *Layer) Len() int {
	return len(l.values)
}

// Freeze makes the layer read-only and returns it.
func (l *Layer) Freeze() *Layer {
	l.frozen = true
	return l
}

// Frozen reports whether the layer is read-only.
func (l *Layer) Frozen() bool {
	return l.frozen
}

func (l *Layer) put(id *keyID, v any) {
	if l.frozen {
		panic(fmt.Sprintf("bag: write of %q to frozen layer %q", id.name, l.name))
	}
	l.values[id] = v
}

// Put stores v under k in layer l. It panics if l is frozen.
func Put[T any](l *Layer, k Key[T], v T) {
	l.put(k.id, v)
}

// Unset masks k in every layer below l. It panics if l is frozen.
func Unset[T any](l *Layer, k Key[T]) {
	l.put(k.id, unset{})
}

// Get returns the value stored under k in this layer only.
func Get[T any](l *Layer, k Key[T]) (T, bool) {
	var zero T
	v, ok := l.values[k.id]
	if !ok {
		return zero, false
	}
	if _, masked := v.(unset); masked {
		return zero, false
	}
	return v.(T), true
}

// Bag is a stack of layers plus a private interceptor-state layer.
// A Bag is owned by a single invocation and is not safe for concurrent use.
type Bag struct {
	layers []*Layer
	state  *Layer
}

// New creates a bag over the given layers, lowest precedence first.
func New(layers ...*Layer) *Bag {
	b := &Bag{state: NewLayer("interceptor_state")}
	for _, l := range layers {
		b.PushLayer(l)
	}
	return b
}

// PushLayer adds l above every existing shared layer. Nil layers are ignored.
// Shared layers are frozen on push.
func (b *Bag) PushLayer(l *Layer) {
	if l == nil {
		return
	}
	b.layers = append(b.layers, l.Freeze())
}

// Layers returns the names of the shared layers, lowest precedence first.
func (b *Bag) Layers() []string {
	names := make([]string, len(b.layers))
	for i, l := range b.layers {
		names[i] = l.name
	}
	return names
}

// State returns the mutable interceptor-state layer.
func (b *Bag) State() *Layer {
	return b.state
}

// Load returns the highest-precedence value stored under k.
func Load[T any](b *Bag, k Key[T]) (T, bool) {
	var zero T
	if v, ok := b.state.values[k.id]; ok {
		if _, masked := v.(unset); masked {
			return zero, false
		}
		return v.(T), true
	}
	for i := len(b.layers) - 1; i >= 0; i-- {
		v, ok := b.layers[i].values[k.id]
		if !ok {
			continue
		}
		if _, masked := v.(unset); masked {
			return zero, false
		}
		return v.(T), true
	}
	return zero, false
}

// LoadOr returns the value stored under k, or def when absent.
func LoadOr[T any](b *Bag, k Key[T], def T) T {
	if v, ok := Load(b, k); ok {
		return v
	}
	return def
}

// Store writes v under k in the interceptor-state layer.
func Store[T any](b *Bag, k Key[T], v T) {
	Put(b.state, k, v)
}

// Remove masks k in the interceptor-state layer.
func Remove[T any](b *Bag, k Key[T]) {
	Unset(b.state, k)
}
