package server

import (
	"testing"

	"github.com/WangZhekun/vue/pkg/protocol"
	"github.com/WangZhekun/vue/pkg/vdom"
)

func TestRemoteAdapterRecordsCreation(t *testing.T) {
	a := NewRemoteAdapter()

	n := vdom.Div(vdom.Props{"id": "main"})
	h := a.CreateElement(n)
	txt := a.CreateText("hello")
	a.Insert(a.Root(), h, nil)
	a.Insert(h, txt, nil)

	batch := a.TakeBatch(1)
	if batch == nil {
		t.Fatal("expected a batch")
	}
	if batch.Seq != 1 {
		t.Fatalf("seq = %d, want 1", batch.Seq)
	}

	var ops []protocol.MutOp
	for _, m := range batch.Mutations {
		ops = append(ops, m.Op)
	}
	want := []protocol.MutOp{
		protocol.MutCreateElement,
		protocol.MutSetProp,
		protocol.MutCreateText,
		protocol.MutInsert,
		protocol.MutInsert,
	}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops[%d] = %v, want %v", i, ops[i], want[i])
		}
	}

	// The mount container is wire ID 0.
	if batch.Mutations[3].Parent != 0 {
		t.Fatalf("root insert parent = %d, want 0", batch.Mutations[3].Parent)
	}
	if batch.Mutations[0].Node == 0 {
		t.Fatal("created node got wire ID 0")
	}
}

func TestTakeBatchDrains(t *testing.T) {
	a := NewRemoteAdapter()
	a.CreateText("x")

	if b := a.TakeBatch(1); b == nil {
		t.Fatal("expected a batch")
	}
	if b := a.TakeBatch(2); b != nil {
		t.Fatalf("expected nil batch after drain, got %d mutations", len(b.Mutations))
	}
}

func TestLookup(t *testing.T) {
	a := NewRemoteAdapter()

	h := a.CreateElement(vdom.Div(nil))
	a.Insert(a.Root(), h, nil)
	id := h.(*vdom.MemNode).ID

	if got := a.Lookup(id); got != h {
		t.Fatalf("Lookup(%d) = %v, want the created node", id, got)
	}
	if got := a.Lookup(0); got != a.root {
		t.Fatal("Lookup(0) should resolve to the root")
	}
	if got := a.Lookup(99999); got != nil {
		t.Fatalf("Lookup of unknown ID = %v, want nil", got)
	}
}

func TestPropsModuleDiffs(t *testing.T) {
	a := NewRemoteAdapter()
	mod := a.PropsModule()

	old := vdom.Div(vdom.Props{"class": "a", "title": "keep", "gone": "x"})
	old.Handle = a.CreateElement(vdom.Div(nil))
	a.TakeBatch(1) // discard creation mutations

	next := vdom.Div(vdom.Props{"class": "b", "title": "keep", "added": "y"})
	next.Handle = old.Handle

	mod.Update(old, next)

	batch := a.TakeBatch(2)
	if batch == nil {
		t.Fatal("expected prop mutations")
	}
	var sets, removes int
	for _, m := range batch.Mutations {
		switch m.Op {
		case protocol.MutSetProp:
			sets++
			if m.Key == "title" {
				t.Fatal("unchanged prop was re-sent")
			}
		case protocol.MutRemoveProp:
			removes++
			if m.Key != "gone" {
				t.Fatalf("removed prop = %q, want gone", m.Key)
			}
		default:
			t.Fatalf("unexpected op %v", m.Op)
		}
	}
	if sets != 2 || removes != 1 {
		t.Fatalf("sets = %d removes = %d, want 2 and 1", sets, removes)
	}
}
