package reactive

import (
	"math"
	"reflect"
	"sync"

	"github.com/WangZhekun/vue/internal/errors"
)

// Raw marks a value that must not be wrapped into an observed
// container. The inner value is stored as-is; mutations to it are
// invisible to the reactivity system.
type Raw struct {
	Value any
}

// Wrap converts plain Go containers into observed ones: map[string]any
// becomes *Map, []any becomes *Slice, recursively. Already-observed
// containers and Raw-marked values pass through; scalars are returned
// unchanged.
func Wrap(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return NewMap(x)
	case []any:
		return NewSlice(x)
	case Raw:
		return x.Value
	default:
		return v
	}
}

// field is one observed slot of a Map.
type field struct {
	value any
	dep   *Dep
}

// Map is an observed string-keyed mapping.
//
// Every value reachable from an observed map is itself observed: Set
// deep-wraps plain maps and slices on the way in. Each field carries
// its own dep; the map additionally carries a structural dep notified
// when fields are added or removed (a mapping cannot retroactively
// intercept access to a field that did not exist at wrap time).
type Map struct {
	mu     sync.RWMutex
	fields map[string]*field

	// dep is the structural dep for membership changes.
	dep *Dep

	// rootCount tracks how many mounted apps use this map as their
	// reactive root. Root maps refuse ad-hoc field adds/deletes.
	rootCount int

	readOnly bool
}

// NewMap creates an observed map, deep-wrapping every initial value.
func NewMap(init map[string]any) *Map {
	m := &Map{
		fields: make(map[string]*field, len(init)),
		dep:    NewDep(),
	}
	for k, v := range init {
		m.fields[k] = &field{value: Wrap(v), dep: NewDep()}
	}
	return m
}

// Dep returns the map's structural dep. Reading it lets traversal and
// collection-level watchers react to field adds and deletes.
func (m *Map) Dep() *Dep {
	return m.dep
}

// MarkRoot records that a mounted app uses this map as its root state.
func (m *Map) MarkRoot() {
	m.mu.Lock()
	m.rootCount++
	m.mu.Unlock()
}

// UnmarkRoot undoes MarkRoot.
func (m *Map) UnmarkRoot() {
	m.mu.Lock()
	if m.rootCount > 0 {
		m.rootCount--
	}
	m.mu.Unlock()
}

// Freeze marks the map read-only. Subsequent writes and deletes are
// warned no-ops. Reads still track dependencies, so a frozen map can
// be swapped for a live one later.
func (m *Map) Freeze() {
	m.mu.Lock()
	m.readOnly = true
	m.mu.Unlock()
}

// Get returns the value of key, registering the current watcher as a
// subscriber of the field. If the value is itself an observed
// collection its structural dep is registered too, so membership
// changes retrigger. For slices every element dep is touched as well,
// since index access cannot be intercepted.
//
// Reading an absent key returns nil and registers nothing; use Set to
// introduce the field (which notifies the structural dep).
func (m *Map) Get(key string) any {
	m.mu.RLock()
	f, ok := m.fields[key]
	m.mu.RUnlock()

	if !ok {
		return nil
	}

	f.dep.Depend()
	dependChildren(f.value, nil)
	return f.value
}

// Has reports whether key exists, registering the structural dep so
// adds and deletes retrigger the reader.
func (m *Map) Has(key string) bool {
	m.dep.Depend()
	m.mu.RLock()
	_, ok := m.fields[key]
	m.mu.RUnlock()
	return ok
}

// Keys returns the field names in unspecified order, registering the
// structural dep.
func (m *Map) Keys() []string {
	m.dep.Depend()
	m.mu.RLock()
	keys := make([]string, 0, len(m.fields))
	for k := range m.fields {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	return keys
}

// Len returns the number of fields, registering the structural dep.
func (m *Map) Len() int {
	m.dep.Depend()
	m.mu.RLock()
	n := len(m.fields)
	m.mu.RUnlock()
	return n
}

// Set writes a value. Writing a value strictly equal to the current
// one (NaN counting as equal to NaN) is a no-op. New values are
// deep-wrapped. Existing fields notify their own dep; a previously
// absent key creates the field lazily and notifies the structural dep
// instead. On root maps adding fields is a warned no-op.
func (m *Map) Set(key string, v any) {
	m.mu.Lock()
	if m.readOnly {
		m.mu.Unlock()
		warn(errors.New("E011").WithContext("set %q", key))
		return
	}
	f, ok := m.fields[key]
	if ok {
		if sameValue(f.value, v) {
			m.mu.Unlock()
			return
		}
		f.value = Wrap(v)
		dep := f.dep
		m.mu.Unlock()
		dep.Notify()
		return
	}

	if m.rootCount > 0 {
		m.mu.Unlock()
		warn(errors.New("E010").WithContext("set %q", key))
		return
	}

	m.fields[key] = &field{value: Wrap(v), dep: NewDep()}
	m.mu.Unlock()
	m.dep.Notify()
}

// Delete removes a field and notifies the structural dep. Deleting
// from a root map is a warned no-op, as is deleting an absent key.
func (m *Map) Delete(key string) {
	m.mu.Lock()
	if m.readOnly {
		m.mu.Unlock()
		warn(errors.New("E011").WithContext("delete %q", key))
		return
	}
	if m.rootCount > 0 {
		m.mu.Unlock()
		warn(errors.New("E010").WithContext("delete %q", key))
		return
	}
	if _, ok := m.fields[key]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.fields, key)
	m.mu.Unlock()
	m.dep.Notify()
}

// snapshot returns the current fields without registering deps.
// Used by traversal, which registers deps itself.
func (m *Map) snapshot() map[string]any {
	m.mu.RLock()
	out := make(map[string]any, len(m.fields))
	for k, f := range m.fields {
		out[k] = f.value
	}
	m.mu.RUnlock()
	return out
}

// fieldDep returns the dep of an existing field, or nil.
// Used by tests to check subscription pruning.
func (m *Map) fieldDep(key string) *Dep {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.fields[key]; ok {
		return f.dep
	}
	return nil
}

// Slice is an observed sequence.
//
// A sequence cannot intercept arbitrary index access the way a mapping
// intercepts named fields, so it carries a single structural dep:
// every read touches it, and every structural mutation notifies it
// exactly once. Reads additionally touch the deps of nested observed
// collections so membership changes deep in the sequence retrigger.
type Slice struct {
	mu    sync.RWMutex
	items []any
	dep   *Dep

	readOnly bool
}

// NewSlice creates an observed slice, deep-wrapping every element.
func NewSlice(init []any) *Slice {
	s := &Slice{
		items: make([]any, len(init)),
		dep:   NewDep(),
	}
	for i, v := range init {
		s.items[i] = Wrap(v)
	}
	return s
}

// Dep returns the slice's structural dep.
func (s *Slice) Dep() *Dep {
	return s.dep
}

// Freeze marks the slice read-only. Subsequent mutations are warned
// no-ops.
func (s *Slice) Freeze() {
	s.mu.Lock()
	s.readOnly = true
	s.mu.Unlock()
}

// frozen reports whether the slice is read-only, warning when it is.
func (s *Slice) frozen(op string) bool {
	s.mu.RLock()
	ro := s.readOnly
	s.mu.RUnlock()
	if ro {
		warn(errors.New("E011").WithContext("slice %s", op))
	}
	return ro
}

// Get returns the element at index i, registering the slice's dep and
// the deps of observed collections reachable from the element.
// Out-of-range indexes return nil.
func (s *Slice) Get(i int) any {
	s.dep.Depend()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.items) {
		return nil
	}
	v := s.items[i]
	dependChildren(v, nil)
	return v
}

// Len returns the number of elements, registering the slice's dep.
func (s *Slice) Len() int {
	s.dep.Depend()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of the elements, registering the slice's dep
// and every element's nested deps.
func (s *Slice) Items() []any {
	s.dep.Depend()
	s.mu.RLock()
	out := make([]any, len(s.items))
	copy(out, s.items)
	s.mu.RUnlock()
	for _, v := range out {
		dependChildren(v, nil)
	}
	return out
}

// SetIndex replaces the element at index i. Equal values are a no-op;
// otherwise the new element is wrapped and the slice dep notified
// once. Out-of-range indexes are ignored.
func (s *Slice) SetIndex(i int, v any) {
	if s.frozen("set") {
		return
	}
	s.mu.Lock()
	if i < 0 || i >= len(s.items) {
		s.mu.Unlock()
		return
	}
	if sameValue(s.items[i], v) {
		s.mu.Unlock()
		return
	}
	s.items[i] = Wrap(v)
	s.mu.Unlock()
	s.dep.Notify()
}

// Push appends elements, wrapping each, and notifies once.
func (s *Slice) Push(vs ...any) {
	if s.frozen("push") {
		return
	}
	if len(vs) == 0 {
		return
	}
	s.mu.Lock()
	for _, v := range vs {
		s.items = append(s.items, Wrap(v))
	}
	s.mu.Unlock()
	s.dep.Notify()
}

// Pop removes and returns the last element (nil if empty).
func (s *Slice) Pop() any {
	if s.frozen("pop") {
		return nil
	}
	s.mu.Lock()
	n := len(s.items)
	if n == 0 {
		s.mu.Unlock()
		return nil
	}
	v := s.items[n-1]
	s.items = s.items[:n-1]
	s.mu.Unlock()
	s.dep.Notify()
	return v
}

// Shift removes and returns the first element (nil if empty).
func (s *Slice) Shift() any {
	if s.frozen("shift") {
		return nil
	}
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return nil
	}
	v := s.items[0]
	s.items = append(s.items[:0], s.items[1:]...)
	s.mu.Unlock()
	s.dep.Notify()
	return v
}

// Unshift prepends elements, wrapping each, and notifies once.
func (s *Slice) Unshift(vs ...any) {
	if s.frozen("unshift") {
		return
	}
	if len(vs) == 0 {
		return
	}
	s.mu.Lock()
	wrapped := make([]any, 0, len(vs)+len(s.items))
	for _, v := range vs {
		wrapped = append(wrapped, Wrap(v))
	}
	s.items = append(wrapped, s.items...)
	s.mu.Unlock()
	s.dep.Notify()
}

// Splice removes deleteCount elements starting at start, inserts the
// given elements in their place, and returns the removed elements.
// Indexes are clamped. The slice dep is notified exactly once.
func (s *Slice) Splice(start, deleteCount int, insert ...any) []any {
	if s.frozen("splice") {
		return nil
	}
	s.mu.Lock()
	n := len(s.items)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if start+deleteCount > n {
		deleteCount = n - start
	}

	removed := make([]any, deleteCount)
	copy(removed, s.items[start:start+deleteCount])

	wrapped := make([]any, len(insert))
	for i, v := range insert {
		wrapped[i] = Wrap(v)
	}

	tail := make([]any, n-start-deleteCount)
	copy(tail, s.items[start+deleteCount:])
	s.items = append(append(s.items[:start], wrapped...), tail...)
	s.mu.Unlock()
	s.dep.Notify()
	return removed
}

// Reverse reverses the elements in place and notifies once.
func (s *Slice) Reverse() {
	if s.frozen("reverse") {
		return
	}
	s.mu.Lock()
	for i, j := 0, len(s.items)-1; i < j; i, j = i+1, j-1 {
		s.items[i], s.items[j] = s.items[j], s.items[i]
	}
	s.mu.Unlock()
	s.dep.Notify()
}

// snapshot returns the current elements without registering deps.
func (s *Slice) snapshot() []any {
	s.mu.RLock()
	out := make([]any, len(s.items))
	copy(out, s.items)
	s.mu.RUnlock()
	return out
}

// dependChildren registers the structural deps of observed collections
// reachable from v. For slices this recursively touches every element,
// which is how membership changes in nested sequences retrigger
// readers. seen guards against self-referential structures.
func dependChildren(v any, seen map[uint64]bool) {
	switch x := v.(type) {
	case *Map:
		x.dep.Depend()
	case *Slice:
		if seen == nil {
			seen = make(map[uint64]bool)
		}
		if seen[x.dep.id] {
			return
		}
		seen[x.dep.id] = true
		x.dep.Depend()
		for _, item := range x.snapshot() {
			dependChildren(item, seen)
		}
	}
}

// sameValue implements the write no-op check: strict equality with the
// special case that NaN equals NaN (a NaN stored and re-stored must
// not self-trigger forever).
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(av) && math.IsNaN(bv) {
			return true
		}
		return av == bv
	case float32:
		bv, ok := b.(float32)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}

	// Reference identity for everything else. Uncomparable dynamic
	// types (plain slices, maps, funcs) always count as different,
	// mirroring strict-equality semantics for fresh objects.
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
