package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/WangZhekun/vue/pkg/reactive"
	"github.com/WangZhekun/vue/pkg/vdom"
)

func benchCmd() *cobra.Command {
	var (
		size       int
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the reconciler in process",
		Long: `Patch a keyed list against the in-memory tree and report
throughput. Two workloads run: rotating the list by one (pure keyed
moves) and rewriting every row's text (pure in-place updates).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runBench("rotate", size, iterations, rotateGen(size))
			runBench("retext", size, iterations, retextGen(size))
			runReactiveBench(size, iterations)
			return nil
		},
	}

	cmd.Flags().IntVarP(&size, "size", "n", 1000, "List size")
	cmd.Flags().IntVarP(&iterations, "iterations", "i", 1000, "Patch cycles per workload")

	return cmd
}

// generator returns the list for one iteration.
type generator func(iter int) *vdom.VNode

func rotateGen(size int) generator {
	keys := make([]string, size)
	for i := range keys {
		keys[i] = fmt.Sprintf("row-%d", i)
	}
	return func(iter int) *vdom.VNode {
		lis := make([]*vdom.VNode, size)
		for i := range lis {
			k := keys[(i+iter)%size]
			lis[i] = vdom.Li(k, nil, vdom.Text(k))
		}
		return vdom.Ul(nil, lis...)
	}
}

func retextGen(size int) generator {
	return func(iter int) *vdom.VNode {
		lis := make([]*vdom.VNode, size)
		for i := range lis {
			k := fmt.Sprintf("row-%d", i)
			lis[i] = vdom.Li(k, nil, vdom.Text(fmt.Sprintf("%s gen %d", k, iter)))
		}
		return vdom.Ul(nil, lis...)
	}
}

// runReactiveBench measures write-then-flush cycles: size watchers
// each reading one field, one field written per iteration.
func runReactiveBench(size, iterations int) {
	state := reactive.NewMap(nil)
	for i := 0; i < size; i++ {
		state.Set(fmt.Sprintf("f%d", i), 0)
	}
	for i := 0; i < size; i++ {
		key := fmt.Sprintf("f%d", i)
		reactive.NewWatcher(nil, func() any { return state.Get(key) }, nil)
	}

	start := time.Now()
	for i := 1; i <= iterations; i++ {
		state.Set(fmt.Sprintf("f%d", i%size), i)
		reactive.Flush()
	}
	elapsed := time.Since(start)

	perOp := elapsed / time.Duration(iterations)
	fmt.Printf("%-8s size=%-6d iters=%-6d total=%-12v per-flush=%-10v\n",
		"react", size, iterations, elapsed.Round(time.Millisecond), perOp)
}

func runBench(name string, size, iterations int, gen generator) {
	dom := vdom.NewMemDOM()
	root := dom.NewRoot()
	p := vdom.NewPatcher(dom)

	tree := gen(0)
	p.PatchRoot(root, nil, tree)

	start := time.Now()
	for i := 1; i <= iterations; i++ {
		next := gen(i)
		p.Patch(tree, next)
		tree = next
	}
	elapsed := time.Since(start)

	perOp := elapsed / time.Duration(iterations)
	fmt.Printf("%-8s size=%-6d iters=%-6d total=%-12v per-patch=%-10v rows/s=%.0f\n",
		name, size, iterations, elapsed.Round(time.Millisecond), perOp,
		float64(size)*float64(iterations)/elapsed.Seconds())
}
