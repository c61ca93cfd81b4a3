package reactive

// Traverse force-touches every dep reachable from v, registering the
// current watcher on each. This is the mechanism behind deep watching:
// evaluating the getter yields the root value, and traversal walks the
// whole tree so any nested write retriggers.
//
// Already-visited collections are tracked by structural-dep identity
// so traversal terminates on cyclic structures.
func Traverse(v any) {
	traverse(v, make(map[uint64]bool))
}

func traverse(v any, seen map[uint64]bool) {
	switch x := v.(type) {
	case *Map:
		if seen[x.dep.id] {
			return
		}
		seen[x.dep.id] = true
		x.dep.Depend()
		for _, child := range traverseMapFields(x) {
			traverse(child, seen)
		}
	case *Slice:
		if seen[x.dep.id] {
			return
		}
		seen[x.dep.id] = true
		x.dep.Depend()
		for _, child := range x.snapshot() {
			traverse(child, seen)
		}
	}
}

// traverseMapFields reads every field through Get so the field deps
// register, returning the child values for recursion.
func traverseMapFields(x *Map) []any {
	x.mu.RLock()
	keys := make([]string, 0, len(x.fields))
	for k := range x.fields {
		keys = append(keys, k)
	}
	x.mu.RUnlock()

	children := make([]any, 0, len(keys))
	for _, k := range keys {
		children = append(children, x.Get(k))
	}
	return children
}
