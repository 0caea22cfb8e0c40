package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/delaneyj/watchparty/cmd/benchmark/templates"
	"github.com/delaneyj/watchparty/observer"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	widthsKey  = "widths"
	heightsKey = "heights"
	itersKey   = "iters"
	asyncKey   = "async"
	htmlKey    = "html"
	profileKey = "cpuprofile"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure change propagation through computed chains and render watchers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  widthsKey,
				Usage: "Comma separated number of chains per case",
				Value: "1,10,100,1000",
			},
			&cli.StringFlag{
				Name:  heightsKey,
				Usage: "Comma separated chain depths per case",
				Value: "1,10,100,1000",
			},
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Writes per case",
				Value: 100,
			},
			&cli.BoolFlag{
				Name:  asyncKey,
				Usage: "Batch watcher runs into a flush per write instead of flushing synchronously",
				Value: true,
			},
			&cli.StringFlag{
				Name:  htmlKey,
				Usage: "Write an HTML report to this path",
			},
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile to this path",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	ww, err := parseSizes(cmd.String(widthsKey))
	if err != nil {
		return fmt.Errorf("%s: %w", widthsKey, err)
	}
	hh, err := parseSizes(cmd.String(heightsKey))
	if err != nil {
		return fmt.Errorf("%s: %w", heightsKey, err)
	}
	iters := int(cmd.Uint(itersKey))
	async := cmd.Bool(asyncKey)

	log.Printf("warming up")
	propagate(1, 1, iters, async)

	tbl := table.NewWriter()
	tbl.SetTitle("Watchers")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max", "runs", "flushes"})

	report := templates.Report{
		Title:      "Watcher propagation",
		Generated:  time.Now(),
		Iterations: iters,
		Async:      async,
	}
	for _, w := range ww {
		for _, h := range hh {
			row := propagate(w, h, iters, async)
			report.Rows = append(report.Rows, row)
			tbl.AppendRow(table.Row{row.Name, row.Avg, row.Min, row.P75, row.P99, row.Max, row.Runs, row.Flushes})
		}
	}
	tbl.Render()

	if path := cmd.String(htmlKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		templates.WriteBenchmarkReport(f, report)
		log.Printf("report written to %s", path)
	}
	return nil
}

func parseSizes(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, fmt.Errorf("size %d must be positive", n)
		}
		out = append(out, n)
	}
	return out, nil
}

// propagate builds w chains of h lazy computed watchers hanging off one
// reactive source, each chain ending in a render watcher, then times iters
// writes to the source.
func propagate(w, h, iters int, async bool) templates.Row {
	var runs, flushes int
	rt := observer.NewRuntime(
		observer.WithAsync(async),
		observer.WithProduction(true),
		observer.WithFlushHook(observer.FlushHookFunc(func(info observer.FlushInfo) {
			flushes++
			runs += info.Total()
		})),
	)
	src := observer.ObjectOf("value", 1)
	rt.Observe(src, false)

	for i := 0; i < w; i++ {
		last := func() int { return src.Get("value").(int) }
		for j := 0; j < h; j++ {
			prev := last
			c := rt.NewWatcher(nil, func() any { return prev() + 1 }, nil, &observer.WatcherOptions{Lazy: true})
			last = func() int { return c.Read().(int) }
		}
		leaf := last
		rt.NewWatcher(nil, func() any { return leaf() }, nil, &observer.WatcherOptions{Render: true})
	}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		src.Put("value", src.Get("value").(int)+1)
		if err := rt.Tick(); err != nil {
			log.Panic(err)
		}
		tach.AddTime(time.Since(start))
	}

	calc := tach.Calc()
	return templates.Row{
		Name:    fmt.Sprintf("propagate: %d * %d", w, h),
		Avg:     calc.Time.Avg,
		Min:     calc.Time.Min,
		P75:     calc.Time.P75,
		P99:     calc.Time.P99,
		Max:     calc.Time.Max,
		Runs:    runs,
		Flushes: flushes,
	}
}
