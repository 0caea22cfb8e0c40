package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/delaneyj/watchparty/devtools"
	"github.com/delaneyj/watchparty/instance"
	"github.com/delaneyj/watchparty/metrics"
	"github.com/delaneyj/watchparty/observer"
	"github.com/delaneyj/watchparty/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

const (
	addrKey       = "addr"
	intervalKey   = "interval"
	productionKey = "production"
)

func main() {
	cmd := &cli.Command{
		Name:  "demo",
		Usage: "Run a todo list component and watch its flushes live",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  addrKey,
				Usage: "HTTP listen address",
				Value: ":8080",
			},
			&cli.DurationFlag{
				Name:  intervalKey,
				Usage: "How often the simulated user edits the list",
				Value: time.Second,
			},
			&cli.BoolFlag{
				Name:  productionKey,
				Usage: "Suppress warnings and uncaught callback errors",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	hub := devtools.New(devtools.WithGatherer(reg))
	defer hub.Close()

	rt := observer.NewRuntime(
		observer.WithProduction(cmd.Bool(productionKey)),
		observer.WithLogger(log.Default()),
		observer.WithFlushHook(metrics.New(metrics.WithRegistry(reg))),
		observer.WithFlushHook(tracing.New()),
		observer.WithFlushHook(hub),
	)
	loop := observer.NewLoop(rt, 64)
	loop.OnError(func(err error) {
		log.Printf("loop: %v", err)
	})
	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()

	var app *instance.Instance
	if err := loop.Do(ctx, func() error {
		app = newTodoApp(rt)
		return nil
	}); err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/debug", hub.Router())
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		var out string
		err := loop.Do(req.Context(), func() error {
			out, _ = app.Rendered().(string)
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, out)
	})
	srv := &http.Server{Addr: cmd.String(addrKey), Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	go simulate(ctx, loop, app, cmd.Duration(intervalKey))

	log.Printf("serving todos on %s, devtools under /debug", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newTodoApp(rt *observer.Runtime) *instance.Instance {
	return instance.New(instance.Options{
		Name:    "todos",
		Runtime: rt,
		Data: func(*instance.Instance) (map[string]any, error) {
			return map[string]any{
				"todos":  []any{},
				"filter": "all",
			}, nil
		},
		Computed: map[string]instance.ComputedDef{
			"remaining": {Get: func(vm *instance.Instance) (any, error) {
				n := 0
				for _, item := range vm.Get("todos").(*observer.Array).Items() {
					if !item.(*observer.Object).Get("done").(bool) {
						n++
					}
				}
				return n, nil
			}},
		},
		Watch: map[string][]instance.WatchDef{
			"remaining": {{Handler: func(_ *instance.Instance, n, o any) error {
				log.Printf("remaining %v -> %v", o, n)
				return nil
			}}},
		},
		Render: func(vm *instance.Instance) (any, error) {
			var sb strings.Builder
			fmt.Fprintf(&sb, "%d remaining (showing %s)\n", vm.Get("remaining"), vm.Get("filter"))
			filter := vm.Get("filter").(string)
			for _, item := range vm.Get("todos").(*observer.Array).Items() {
				todo := item.(*observer.Object)
				done := todo.Get("done").(bool)
				if (filter == "active" && done) || (filter == "done" && !done) {
					continue
				}
				mark := " "
				if done {
					mark = "x"
				}
				fmt.Fprintf(&sb, "[%s] %s\n", mark, todo.Get("title"))
			}
			return sb.String(), nil
		},
	}).Mount()
}

// simulate edits the list on the loop every interval: add a todo, finish the
// oldest open one, cycle the filter and drop finished ones from the front.
func simulate(ctx context.Context, loop *observer.Loop, app *instance.Instance, interval time.Duration) {
	filters := []string{"all", "active", "done"}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := loop.Submit(ctx, func() {
			todos := app.Get("todos").(*observer.Array)
			switch step % 4 {
			case 0:
				todos.Push(observer.ObjectOf("title", fmt.Sprintf("task %d", step), "done", false))
			case 1:
				for _, item := range todos.Items() {
					if todo := item.(*observer.Object); !todo.Get("done").(bool) {
						todo.Put("done", true)
						break
					}
				}
			case 2:
				app.Set("filter", filters[(step/4)%len(filters)])
			case 3:
				if todos.Len() > 5 {
					todos.Shift()
				}
			}
		})
		if err != nil {
			return
		}
	}
}
