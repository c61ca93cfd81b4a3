package runtime

import (
	"fmt"
	"testing"
	"time"

	"github.com/WangZhekun/vue/internal/errors"
	"github.com/WangZhekun/vue/pkg/reactive"
	"github.com/WangZhekun/vue/pkg/vdom"
)

// waitFlush blocks until the pending re-renders have been applied.
func waitFlush(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	NextTick(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flush did not run")
	}
}

func TestMountRendersInitialState(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{"msg": "hello"})

	app := New(dom, state, func() *vdom.VNode {
		return vdom.Div(nil, vdom.Text(state.Get("msg").(string)))
	})
	if err := app.Mount(root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if got := root.TextContent(); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}

func TestWriteThenFlushUpdatesNativeText(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{"count": 0})

	app := New(dom, state, func() *vdom.VNode {
		return vdom.Div(nil, vdom.Text(fmt.Sprintf("%v", state.Get("count"))))
	})
	if err := app.Mount(root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if got := root.TextContent(); got != "0" {
		t.Fatalf("expected %q, got %q", "0", got)
	}

	state.Set("count", 1)

	// The write is immediate in the state, deferred in the tree.
	if got := state.Get("count"); got != 1 {
		t.Errorf("expected state 1, got %v", got)
	}
	waitFlush(t)
	if got := root.TextContent(); got != "1" {
		t.Errorf("expected %q after flush, got %q", "1", got)
	}
}

func TestListReversalReusesHandles(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{
		"items": []any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
		},
	})
	items := state.Get("items").(*reactive.Slice)

	var creates int
	app := New(dom, state, func() *vdom.VNode {
		var lis []*vdom.VNode
		for _, it := range items.Items() {
			id := it.(*reactive.Map).Get("id").(string)
			lis = append(lis, vdom.Li(id, nil, vdom.Text(id)))
		}
		return vdom.Ul(nil, lis...)
	}, WithPatcherOptions(vdom.WithOpHook(func(o vdom.Op) {
		if o == vdom.OpCreate {
			creates++
		}
	})))
	if err := app.Mount(root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if got := root.TextContent(); got != "12" {
		t.Fatalf("expected %q, got %q", "12", got)
	}

	ul := root.Children[0]
	h1, h2 := ul.Children[0], ul.Children[1]
	creates = 0

	items.Reverse()
	waitFlush(t)

	if got := root.TextContent(); got != "21" {
		t.Errorf("expected %q, got %q", "21", got)
	}
	if creates != 0 {
		t.Errorf("reversal should create zero handles, created %d", creates)
	}
	if ul.Children[0] != h2 || ul.Children[1] != h1 {
		t.Error("reversal must reorder the two original handles")
	}
}

func TestMultipleWritesOneRender(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{"n": 0})

	renders := 0
	app := New(dom, state, func() *vdom.VNode {
		renders++
		return vdom.Div(nil, vdom.Text(fmt.Sprintf("%v", state.Get("n"))))
	})
	if err := app.Mount(root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	renders = 0

	state.Set("n", 1)
	state.Set("n", 2)
	state.Set("n", 3)
	waitFlush(t)

	if renders != 1 {
		t.Errorf("expected exactly 1 re-render for 3 writes, got %d", renders)
	}
	if got := root.TextContent(); got != "3" {
		t.Errorf("expected %q, got %q", "3", got)
	}
}

func TestRenderPanicKeepsPreviousTree(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{"n": 0})

	var reported []error
	reactive.SetErrorHandler(func(err error) { reported = append(reported, err) })
	defer reactive.SetErrorHandler(nil)

	app := New(dom, state, func() *vdom.VNode {
		if state.Get("n").(int) > 0 {
			panic("render exploded")
		}
		return vdom.Div(nil, vdom.Text("ok"))
	})
	if err := app.Mount(root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	state.Set("n", 1)
	waitFlush(t)

	// The failed generation is reported, the previous one stays up.
	if got := root.TextContent(); got != "ok" {
		t.Errorf("expected previous tree retained, got %q", got)
	}
	if len(reported) == 0 {
		t.Fatal("render panic was not reported")
	}
}

func TestSecondMountIntoSameContainerFails(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{"x": 1})
	render := func() *vdom.VNode { return vdom.Div(nil) }

	a := New(dom, state, render)
	if err := a.Mount(root); err != nil {
		t.Fatalf("first mount failed: %v", err)
	}
	defer a.Unmount()

	b := New(dom, reactive.NewMap(map[string]any{"y": 2}), render)
	if err := b.Mount(root); err == nil {
		t.Error("second mount into an occupied container must fail")
	}
}

func TestUnmountStopsReacting(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{"n": 0})

	renders := 0
	app := New(dom, state, func() *vdom.VNode {
		renders++
		return vdom.Div(nil, vdom.Text(fmt.Sprintf("%v", state.Get("n"))))
	})
	if err := app.Mount(root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	app.Unmount()

	if got := root.TextContent(); got != "" {
		t.Errorf("expected empty container after unmount, got %q", got)
	}
	renders = 0
	state.Set("n", 5)
	waitFlush(t)
	if renders != 0 {
		t.Errorf("unmounted app re-rendered %d times", renders)
	}

	// The container is free again.
	b := New(dom, reactive.NewMap(map[string]any{"m": 0}), func() *vdom.VNode {
		return vdom.Div(nil, vdom.Text("second"))
	})
	if err := b.Mount(root); err != nil {
		t.Errorf("remount after unmount failed: %v", err)
	}
}

func TestWatchFiresOnDependencyChange(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{"name": "a"})

	app := New(dom, state, func() *vdom.VNode { return vdom.Div(nil) })
	if err := app.Mount(root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	var calls [][2]any
	stop := app.Watch(
		func() any { return state.Get("name") },
		func(newVal, oldVal any) { calls = append(calls, [2]any{newVal, oldVal}) },
	)

	state.Set("name", "b")
	waitFlush(t)
	if len(calls) != 1 {
		t.Fatalf("expected 1 watch call, got %d", len(calls))
	}
	if calls[0][0] != "b" || calls[0][1] != "a" {
		t.Errorf("expected (b, a), got (%v, %v)", calls[0][0], calls[0][1])
	}

	stop()
	state.Set("name", "c")
	waitFlush(t)
	if len(calls) != 1 {
		t.Errorf("stopped watcher fired, %d calls", len(calls))
	}
}

// counterComp re-renders on its own when the field it reads changes.
type counterComp struct {
	state *reactive.Map
	runs  int
}

func (c *counterComp) Render() *vdom.VNode {
	c.runs++
	return vdom.Span(nil, vdom.Text(fmt.Sprintf("%v", c.state.Get("inner"))))
}

func TestComponentRerendersIndependently(t *testing.T) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	state := reactive.NewMap(map[string]any{"inner": 0, "outer": 0})

	comp := &counterComp{state: state}
	rootRenders := 0
	app := New(dom, state, func() *vdom.VNode {
		rootRenders++
		// The root reads only "outer"; the component reads "inner".
		return vdom.Div(nil,
			vdom.Text(fmt.Sprintf("%v", state.Get("outer"))),
			vdom.Mount(comp, nil),
		)
	})
	if err := app.Mount(root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if got := root.TextContent(); got != "00" {
		t.Fatalf("expected %q, got %q", "00", got)
	}
	rootRenders, comp.runs = 0, 0

	state.Set("inner", 7)
	waitFlush(t)

	if rootRenders != 0 {
		t.Errorf("root re-rendered %d times for a component-only change", rootRenders)
	}
	if comp.runs != 1 {
		t.Errorf("expected 1 component render, got %d", comp.runs)
	}
	if got := root.TextContent(); got != "07" {
		t.Errorf("expected %q, got %q", "07", got)
	}
}

func TestCollapseWarnsOnMultipleRoots(t *testing.T) {
	var warned []*errors.RuntimeError
	reactive.SetWarnHandler(func(e *errors.RuntimeError) { warned = append(warned, e) })
	defer reactive.SetWarnHandler(nil)

	if got := Collapse(nil); got != nil {
		t.Errorf("empty sequence should collapse to nil, got %v", got)
	}

	single := vdom.Div(nil)
	if got := Collapse([]*vdom.VNode{single}); got != single {
		t.Error("singleton sequence should pass through")
	}
	if len(warned) != 0 {
		t.Fatalf("singleton collapse warned: %v", warned)
	}

	first := vdom.Div(nil)
	if got := Collapse([]*vdom.VNode{first, vdom.Span(nil)}); got != first {
		t.Error("multi-root collapse should keep the first root")
	}
	if len(warned) != 1 || warned[0].Code != "E014" {
		t.Fatalf("expected one E014 warning, got %v", warned)
	}
}
