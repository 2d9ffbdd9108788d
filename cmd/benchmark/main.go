package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/watchparty/depwatch"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	profileKey  = "profile"
	itersKey    = "iters"
	maxKey      = "max"
	syncKey     = "sync"
	watchersKey = "watchers"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure change propagation through chains of computed values",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile to this file",
				Value: "default.pgo",
			},
			&cli.IntFlag{
				Name:  itersKey,
				Usage: "Number of writes measured per graph",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  maxKey,
				Usage: "Largest width and height of the graph",
				Value: 1_000,
			},
			&cli.BoolFlag{
				Name:  syncKey,
				Usage: "Flush synchronously on every write instead of batching",
			},
			&cli.BoolFlag{
				Name:  watchersKey,
				Usage: "Use a user watcher at the end of each chain instead of a render watcher",
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

	var sizes []int
	for n := 1; n <= int(cmd.Int(maxKey)); n *= 10 {
		sizes = append(sizes, n)
	}

	log.Printf("warming up")
	b := &propagation{
		iters:    int(cmd.Int(itersKey)),
		async:    !cmd.Bool(syncKey),
		user:     cmd.Bool(watchersKey),
		sizes:    sizes,
		tbl:      table.NewWriter(),
		startAll: time.Now(),
	}
	if err := b.measure(); err != nil {
		return err
	}
	b.tbl.SetTitle("depwatch")
	b.tbl.SetOutputMirror(os.Stdout)
	b.tbl.Render()
	log.Printf("finished in %v", time.Since(b.startAll))
	return nil
}

type propagation struct {
	iters       int
	async, user bool
	sizes       []int
	tbl         table.Writer
	startAll    time.Time
}

func (b *propagation) measure() error {
	b.tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max", "runs"})

	for _, w := range b.sizes {
		for _, h := range b.sizes {
			calc, runs, err := b.graph(w, h)
			if err != nil {
				return fmt.Errorf("propagate %d * %d: %w", w, h, err)
			}
			b.tbl.AppendRow(table.Row{
				fmt.Sprintf("propagate: %d * %d", w, h),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
				runs,
			})
		}
	}
	return nil
}

// graph builds w chains of h computed values over one source, each chain
// ending in a watcher, then times writes to the source.
func (b *propagation) graph(w, h int) (*tachymeter.Metrics, int, error) {
	var firstErr error
	rs := depwatch.CreateReactiveSystem(func(from *depwatch.Watcher, err error, info string) {
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", info, err)
		}
	}, depwatch.WithAsync(b.async))

	src := depwatch.FromMap(map[string]any{"v": 1})
	rs.Observe(src)

	runs := 0
	for i := 0; i < w; i++ {
		last := rs.Computed(nil, func() (any, error) {
			return src.Get("v").(int) + 1, nil
		})
		for j := 1; j < h; j++ {
			prev := last
			last = rs.Computed(nil, func() (any, error) {
				v, err := prev.Get()
				if err != nil {
					return nil, err
				}
				return v.(int) + 1, nil
			})
		}

		tail := last
		getter := func() (any, error) { return tail.Get() }
		var err error
		if b.user {
			_, err = rs.Watch(nil, getter, func(n, o any) error {
				runs++
				return nil
			})
		} else {
			_, err = rs.NewWatcher(nil, depwatch.Getter(getter), func(n, o any) error {
				runs++
				return nil
			})
		}
		if err != nil {
			return nil, 0, err
		}
	}

	tach := tachymeter.New(&tachymeter.Config{Size: b.iters})
	for i := 0; i < b.iters; i++ {
		start := time.Now()
		src.Set("v", src.Get("v").(int)+1)
		if err := rs.FlushSync(); err != nil {
			return nil, 0, err
		}
		tach.AddTime(time.Since(start))
	}
	rs.Drain()

	if firstErr != nil {
		return nil, 0, firstErr
	}
	if want := w * b.iters; runs != want {
		return nil, 0, fmt.Errorf("expected %d watcher runs, got %d", want, runs)
	}
	return tach.Calc(), runs, nil
}
