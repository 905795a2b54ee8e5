// Package vars holds the variable tables the engine operates on: the global
// Context, module namespaces and caller-local bindings.
//
// Values are untyped beyond what the engine needs: string, int64, float64, bool,
// nil (absent), a Formula, or a Callable.
package vars

import (
	"context"
	"sort"
)

// Lookup is a single source in a scope chain.
type Lookup interface {
	// Lookup returns the value stored under name and whether it is present.
	Lookup(name string) (any, bool)
}

// Formula is a zero-argument producer used as the value of a template variable.
type Formula func() any

// Callable is anything the command runner can invoke by name.
type Callable interface {
	Invoke(ctx context.Context, args []any, kwargs map[string]any) error
}

// Func adapts a plain Go function to the Callable interface.
type Func func(ctx context.Context, args []any, kwargs map[string]any) error

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, args []any, kwargs map[string]any) error {
	return f(ctx, args, kwargs)
}

// Bindings are caller-local variables placed at the front of a scope chain.
type Bindings map[string]any

// Lookup implements Lookup.
func (b Bindings) Lookup(name string) (any, bool) {
	v, ok := b[name]
	return v, ok
}

// Table is a named variable table. Tables are compared by identity: the
// registry refuses to register the same *Table twice.
type Table struct {
	name   string
	values map[string]any
	docs   map[string]string
	watch  func(name string, value any) error
}

// NewTable creates an empty table.
func NewTable(name string) *Table {
	return &Table{
		name:   name,
		values: make(map[string]any),
		docs:   make(map[string]string),
	}
}

// NewTableFrom creates a table pre-populated with values.
func NewTableFrom(name string, values map[string]any) *Table {
	t := NewTable(name)
	for k, v := range values {
		t.values[k] = v
	}
	return t
}

// Name returns the table name given at creation.
func (t *Table) Name() string {
	return t.name
}

// Lookup implements Lookup.
func (t *Table) Lookup(name string) (any, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Get returns the value of name, or def if it is absent or nil.
func (t *Table) Get(name string, def any) any {
	if v, ok := t.values[name]; ok && v != nil {
		return v
	}
	return def
}

// Has reports whether name is present, even with a nil value.
func (t *Table) Has(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Set stores value under name. A value refused by the watch function is
// dropped; use Update to see the error.
func (t *Table) Set(name string, value any) {
	_ = t.Update(name, value)
}

// Update stores value under name once the watch function, if any, accepts it.
// On error the table is unchanged.
func (t *Table) Update(name string, value any) error {
	if t.watch != nil {
		if err := t.watch(name, value); err != nil {
			return err
		}
	}
	t.values[name] = value
	return nil
}

// Watch makes fn see every later Set and Update before the value is stored.
// Values given to NewTableFrom and Define bypass it.
func (t *Table) Watch(fn func(name string, value any) error) {
	t.watch = fn
}

// Delete removes name.
func (t *Table) Delete(name string) {
	delete(t.values, name)
}

// Define stores a default value together with its documentation. For template
// variables the documentation is filed under the base name.
func (t *Table) Define(name string, value any, doc string) {
	t.values[name] = value
	if doc != "" {
		t.docs[TemplateBase(name)] = doc
	}
}

// Doc returns the documentation recorded for name by Define.
func (t *Table) Doc(name string) string {
	return t.docs[name]
}

// Documented returns the names that carry documentation, sorted.
func (t *Table) Documented() []string {
	names := make([]string, 0, len(t.docs))
	for name := range t.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys returns all variable names, sorted.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of variables.
func (t *Table) Len() int {
	return len(t.values)
}

// Snapshot returns a shallow copy of the values.
func (t *Table) Snapshot() map[string]any {
	out := make(map[string]any, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}
