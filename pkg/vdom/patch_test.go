package vdom

import (
	"strings"
	"testing"

	"github.com/WangZhekun/vue/internal/errors"
)

func keyedList(keys ...string) *VNode {
	items := make([]*VNode, len(keys))
	for i, k := range keys {
		items[i] = Li(k, nil, Text(k))
	}
	return Element("ul", nil, items...)
}

func handlesByKey(n *VNode) map[string]Handle {
	out := make(map[string]Handle)
	for _, c := range n.Children {
		out[c.Key] = c.Handle
	}
	return out
}

func TestPatchInitialMount(t *testing.T) {
	dom := NewMemDOM()
	p := NewPatcher(dom)
	root := dom.NewRoot()

	tree := Div(nil,
		H1(nil, Text("hello")),
		P(nil, Text("world")),
	)
	p.PatchRoot(root, nil, tree)

	if tree.Handle == nil {
		t.Fatal("root vnode did not receive a handle")
	}
	got := root.TextContent()
	if got != "helloworld" {
		t.Errorf("expected text content %q, got %q", "helloworld", got)
	}
}

func TestPatchTextUpdate(t *testing.T) {
	dom := NewMemDOM()
	p := NewPatcher(dom)
	root := dom.NewRoot()

	a := Div(nil, Text("before"))
	b := Div(nil, Text("after"))
	p.PatchRoot(root, nil, a)
	p.Patch(a, b)

	if got := root.TextContent(); got != "after" {
		t.Errorf("expected %q, got %q", "after", got)
	}
	// Text node handle is reused, not recreated.
	if a.Children[0].Handle != b.Children[0].Handle {
		t.Error("text node was recreated instead of patched")
	}
}

func TestPatchReplacementInsertsBeforeRemoval(t *testing.T) {
	dom := NewMemDOM()

	var events []string
	mod := Module{
		Create: func(old, new *VNode) {
			if new.Tag != "" {
				events = append(events, "create:"+new.Tag)
			}
		},
		Remove: func(n *VNode, done func()) {
			events = append(events, "remove:"+n.Tag)
			done()
		},
	}
	p := NewPatcher(dom, WithModules(mod))
	root := dom.NewRoot()

	a := Element("div", nil, Text("x"))
	b := Element("span", nil, Text("y"))
	p.PatchRoot(root, nil, a)
	events = events[:0]

	p.Patch(a, b)

	// The replacement is created before the old node is removed so
	// both briefly coexist.
	joined := strings.Join(events, ",")
	ci := strings.Index(joined, "create:span")
	ri := strings.Index(joined, "remove:div")
	if ci < 0 || ri < 0 || ci > ri {
		t.Errorf("expected create before remove, got %v", events)
	}
	if got := root.TextContent(); got != "y" {
		t.Errorf("expected %q, got %q", "y", got)
	}
}

func TestUpdateChildrenRotationReusesAllNodes(t *testing.T) {
	dom := NewMemDOM()
	var creates int
	p := NewPatcher(dom, WithOpHook(func(o Op) {
		if o == OpCreate {
			creates++
		}
	}))
	root := dom.NewRoot()

	a := keyedList("a", "b", "c", "d", "e")
	p.PatchRoot(root, nil, a)
	before := handlesByKey(a)
	creates = 0

	// Rotate left by two.
	b := keyedList("c", "d", "e", "a", "b")
	p.Patch(a, b)

	if creates != 0 {
		t.Errorf("rotation should create zero nodes, created %d", creates)
	}
	after := handlesByKey(b)
	for k, h := range before {
		if after[k] != h {
			t.Errorf("key %q lost its handle across rotation", k)
		}
	}
	if got := root.TextContent(); got != "cdeab" {
		t.Errorf("expected order %q, got %q", "cdeab", got)
	}
}

func TestUpdateChildrenReversal(t *testing.T) {
	dom := NewMemDOM()
	var creates int
	p := NewPatcher(dom, WithOpHook(func(o Op) {
		if o == OpCreate {
			creates++
		}
	}))
	root := dom.NewRoot()

	a := keyedList("1", "2", "3", "4")
	p.PatchRoot(root, nil, a)
	creates = 0

	b := keyedList("4", "3", "2", "1")
	p.Patch(a, b)

	if creates != 0 {
		t.Errorf("reversal should create zero nodes, created %d", creates)
	}
	if got := root.TextContent(); got != "4321" {
		t.Errorf("expected %q, got %q", "4321", got)
	}
}

func TestUpdateChildrenMixedInsertRemove(t *testing.T) {
	dom := NewMemDOM()
	p := NewPatcher(dom)
	root := dom.NewRoot()

	a := keyedList("a", "b", "c", "d")
	p.PatchRoot(root, nil, a)
	before := handlesByKey(a)

	// Drop b and d, insert x and y, move c to the front.
	b := keyedList("c", "x", "a", "y")
	p.Patch(a, b)

	after := handlesByKey(b)
	for _, k := range []string{"a", "c"} {
		if after[k] != before[k] {
			t.Errorf("surviving key %q was recreated", k)
		}
	}
	for _, k := range []string{"x", "y"} {
		if after[k] == nil {
			t.Errorf("inserted key %q has no handle", k)
		}
	}
	if got := root.TextContent(); got != "cxay" {
		t.Errorf("expected %q, got %q", "cxay", got)
	}
	// The dropped nodes were physically detached.
	if dom.Removed.Load() == 0 {
		t.Error("expected removals for dropped keys")
	}
}

func TestUpdateChildrenPrependAppend(t *testing.T) {
	dom := NewMemDOM()
	p := NewPatcher(dom)
	root := dom.NewRoot()

	a := keyedList("b", "c")
	p.PatchRoot(root, nil, a)

	b := keyedList("a", "b", "c", "d")
	p.Patch(a, b)

	if got := root.TextContent(); got != "abcd" {
		t.Errorf("expected %q, got %q", "abcd", got)
	}
}

func TestUpdateChildrenKeylessFallsBackToScan(t *testing.T) {
	dom := NewMemDOM()
	p := NewPatcher(dom)
	root := dom.NewRoot()

	a := Element("div", nil,
		Element("span", nil, Text("s")),
		Element("p", nil, Text("p")),
	)
	p.PatchRoot(root, nil, a)
	spanHandle := a.Children[0].Handle

	b := Element("div", nil,
		Element("p", nil, Text("p")),
		Element("span", nil, Text("s")),
	)
	p.Patch(a, b)

	if b.Children[1].Handle != spanHandle {
		t.Error("keyless span should be matched by scan and reused")
	}
	if got := root.TextContent(); got != "ps" {
		t.Errorf("expected %q, got %q", "ps", got)
	}
}

func TestDuplicateKeysWarnAndProceed(t *testing.T) {
	dom := NewMemDOM()
	var warned []*errors.RuntimeError
	p := NewPatcher(dom, WithWarnHandler(func(e *errors.RuntimeError) {
		warned = append(warned, e)
	}))
	root := dom.NewRoot()

	a := keyedList("a", "b")
	p.PatchRoot(root, nil, a)

	b := keyedList("a", "a", "b")
	p.Patch(a, b)

	if len(warned) != 1 {
		t.Fatalf("expected 1 duplicate-key warning, got %d", len(warned))
	}
	if warned[0].Code != "E013" {
		t.Errorf("expected code E013, got %s", warned[0].Code)
	}
	// The patch still lands.
	if got := root.TextContent(); got != "aab" {
		t.Errorf("expected %q, got %q", "aab", got)
	}
}

func TestKeylessItemInKeyedListWarns(t *testing.T) {
	dom := NewMemDOM()
	var warned []*errors.RuntimeError
	p := NewPatcher(dom, WithWarnHandler(func(e *errors.RuntimeError) {
		warned = append(warned, e)
	}))
	root := dom.NewRoot()

	a := keyedList("a", "b")
	p.PatchRoot(root, nil, a)

	b := Ul(nil,
		Li("a", nil, Text("a")),
		Li("", nil, Text("x")),
		Li("b", nil, Text("b")),
	)
	p.Patch(a, b)

	if len(warned) != 1 {
		t.Fatalf("expected 1 missing-key warning, got %d", len(warned))
	}
	if warned[0].Code != "E015" {
		t.Errorf("expected code E015, got %s", warned[0].Code)
	}
	if got := root.TextContent(); got != "axb" {
		t.Errorf("expected %q, got %q", "axb", got)
	}
}

func TestKeyCollisionAcrossTagsCreatesFresh(t *testing.T) {
	dom := NewMemDOM()
	p := NewPatcher(dom)
	root := dom.NewRoot()

	a := Element("div", nil, KeyedElement("span", "k", nil, Text("old")))
	p.PatchRoot(root, nil, a)
	oldHandle := a.Children[0].Handle

	// Same key, different tag: key match is not a logical match.
	b := Element("div", nil, KeyedElement("em", "k", nil, Text("new")))
	p.Patch(a, b)

	if b.Children[0].Handle == oldHandle {
		t.Error("node with same key but different tag must be recreated")
	}
	if got := root.TextContent(); got != "new" {
		t.Errorf("expected %q, got %q", "new", got)
	}
}

func TestStaticSubtreeShortCircuit(t *testing.T) {
	dom := NewMemDOM()
	var updates int
	p := NewPatcher(dom, WithOpHook(func(o Op) {
		if o == OpUpdate || o == OpText {
			updates++
		}
	}))
	root := dom.NewRoot()

	header := Static(Div(nil, H1(nil, Text("static header"))))
	a := Element("main", nil, header, P(nil, Text("v1")))
	p.PatchRoot(root, nil, a)
	updates = 0

	// A distinct but equally static header plus changed dynamic text.
	header2 := Static(Div(nil, H1(nil, Text("static header"))))
	b := Element("main", nil, header2, P(nil, Text("v2")))
	p.Patch(a, b)

	// Only the dynamic paragraph is touched: main update, p update,
	// one text write.
	if updates > 3 {
		t.Errorf("static subtree was diffed, %d update ops", updates)
	}
	if header2.Handle != header.Handle {
		t.Error("static root should reuse its handle untouched")
	}
	if got := root.TextContent(); got != "static headerv2" {
		t.Errorf("expected %q, got %q", "static headerv2", got)
	}
}

func TestDestroyHooksChildrenFirst(t *testing.T) {
	dom := NewMemDOM()
	var order []string
	mod := Module{
		Destroy: func(n *VNode) {
			if n.Kind == KindElement {
				order = append(order, n.Tag)
			}
		},
	}
	p := NewPatcher(dom, WithModules(mod))
	root := dom.NewRoot()

	tree := Element("section", nil,
		Element("article", nil,
			Element("span", nil, Text("x")),
		),
	)
	p.PatchRoot(root, nil, tree)

	p.Patch(tree, nil)

	want := []string{"span", "article", "section"}
	if len(order) != len(want) {
		t.Fatalf("expected %d destroy calls, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("destroy order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestRemoveHookReferenceCounting(t *testing.T) {
	dom := NewMemDOM()

	var pending func()
	mod := Module{
		Remove: func(n *VNode, done func()) {
			// Hold the reference, simulating an async transition.
			pending = done
		},
	}
	p := NewPatcher(dom, WithModules(mod))
	root := dom.NewRoot()

	a := Element("div", nil, Element("span", nil, Text("x")))
	p.PatchRoot(root, nil, a)
	removedBefore := dom.Removed.Load()

	b := Element("div", nil)
	p.Patch(a, b)

	// The span's handle stays attached until the module releases it.
	if dom.Removed.Load() != removedBefore {
		t.Error("handle removed before all remove listeners released")
	}
	pending()
	if dom.Removed.Load() != removedBefore+1 {
		t.Error("handle not removed after last listener released")
	}
}

func TestPatchTextToChildrenAndBack(t *testing.T) {
	dom := NewMemDOM()
	p := NewPatcher(dom)
	root := dom.NewRoot()

	a := Element("div", nil)
	a.Text = "plain"
	p.PatchRoot(root, nil, a)
	if got := root.TextContent(); got != "plain" {
		t.Fatalf("expected %q, got %q", "plain", got)
	}

	b := Element("div", nil, Span(nil, Text("child")))
	p.Patch(a, b)
	if got := root.TextContent(); got != "child" {
		t.Errorf("expected %q, got %q", "child", got)
	}

	c := Element("div", nil)
	c.Text = "plain again"
	p.Patch(b, c)
	if got := root.TextContent(); got != "plain again" {
		t.Errorf("expected %q, got %q", "plain again", got)
	}
}

func TestPatchEmptyOldChildren(t *testing.T) {
	dom := NewMemDOM()
	p := NewPatcher(dom)
	root := dom.NewRoot()

	a := keyedList()
	p.PatchRoot(root, nil, a)

	b := keyedList("a", "b")
	p.Patch(a, b)
	if got := root.TextContent(); got != "ab" {
		t.Errorf("expected %q, got %q", "ab", got)
	}

	c := keyedList()
	p.Patch(b, c)
	if got := root.TextContent(); got != "" {
		t.Errorf("expected empty content, got %q", got)
	}
}

func TestActivateRunsAfterInsertion(t *testing.T) {
	dom := NewMemDOM()
	var attachedAtActivate []bool
	mod := Module{
		Activate: func(n *VNode) {
			if n.Tag == "" {
				return
			}
			mem, ok := n.Handle.(*MemNode)
			if !ok {
				t.Fatalf("unexpected handle type %T", n.Handle)
			}
			attachedAtActivate = append(attachedAtActivate, mem.Parent != nil)
		},
	}
	p := NewPatcher(dom, WithModules(mod))
	root := dom.NewRoot()

	p.PatchRoot(root, nil, Div(nil, Span(nil, Text("x"))))

	if len(attachedAtActivate) == 0 {
		t.Fatal("activate hooks did not run")
	}
	for i, attached := range attachedAtActivate {
		if !attached {
			t.Errorf("activate[%d] ran before node was attached", i)
		}
	}
}

func TestComponentHooksDrivePatch(t *testing.T) {
	dom := NewMemDOM()

	var inits, prepatches, destroys int
	hooks := ComponentHooks{
		Init: func(n *VNode) Handle {
			inits++
			h := dom.CreateElement(Element("component-root", nil))
			return h
		},
		Prepatch: func(old, new *VNode) {
			prepatches++
			new.Instance = old.Instance
		},
		Destroy: func(n *VNode) {
			destroys++
		},
	}
	p := NewPatcher(dom, WithComponentHooks(hooks))
	root := dom.NewRoot()

	comp := Func(func() *VNode { return Div(nil) })
	a := Element("div", nil, Mount(comp, nil))
	p.PatchRoot(root, nil, a)
	if inits != 1 {
		t.Fatalf("expected 1 init, got %d", inits)
	}

	b := Element("div", nil, Mount(comp, Props{"n": 2}))
	p.Patch(a, b)
	if prepatches != 1 {
		t.Errorf("expected 1 prepatch, got %d", prepatches)
	}

	p.Patch(b, nil)
	if destroys != 1 {
		t.Errorf("expected 1 destroy, got %d", destroys)
	}
}
