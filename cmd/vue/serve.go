package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WangZhekun/vue/pkg/metrics"
	"github.com/WangZhekun/vue/pkg/protocol"
	"github.com/WangZhekun/vue/pkg/reactive"
	"github.com/WangZhekun/vue/pkg/runtime"
	"github.com/WangZhekun/vue/pkg/server"
	"github.com/WangZhekun/vue/pkg/vdom"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo app over WebSocket",
		Long: `Start a session server hosting a small demo app: a counter and a
keyed list. Each connected client gets its own app instance; events
flow up, mutation batches flow down. Prometheus metrics are exposed
on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics.Enable()

			srv := server.New(&server.Config{Address: addr}, demoFactory)

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":3000", "Listen address")

	return cmd
}

// demoFactory builds the per-session demo app: a counter plus a keyed
// list that can be shuffled, so both text patches and keyed moves show
// up on the wire.
func demoFactory(adapter *server.RemoteAdapter) (*runtime.App, server.EventHandler) {
	state := reactive.NewMap(map[string]any{
		"count": 0,
		"items": []any{"alpha", "beta", "gamma", "delta"},
	})

	render := func() *vdom.VNode {
		items := state.Get("items").(*reactive.Slice)
		lis := make([]*vdom.VNode, 0, items.Len())
		for i := 0; i < items.Len(); i++ {
			label := items.Get(i).(string)
			lis = append(lis, vdom.Li(label, nil, vdom.Text(label)))
		}
		return vdom.Div(nil,
			vdom.H1(nil, vdom.Text(fmt.Sprintf("count: %v", state.Get("count")))),
			vdom.Ul(nil, lis...),
		)
	}

	app := runtime.New(adapter, state, render,
		runtime.WithPatcherOptions(vdom.WithModules(adapter.PropsModule())))

	handler := func(ev *protocol.Event) {
		switch ev.Type {
		case "increment":
			state.Set("count", state.Get("count").(int)+1)
		case "reverse":
			state.Get("items").(*reactive.Slice).Reverse()
		case "push":
			state.Get("items").(*reactive.Slice).Push(ev.Value)
		}
	}
	return app, handler
}
