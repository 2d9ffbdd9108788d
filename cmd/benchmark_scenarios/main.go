package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/watchparty/depwatch"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	repeatsKey  = "repeats"
	scenarioKey = "scenario"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark_scenarios",
		Usage: "Run layered computed graphs shaped like real applications",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  repeatsKey,
				Usage: "Runs per scenario, the fastest is reported",
				Value: 5,
			},
			&cli.StringFlag{
				Name:  scenarioKey,
				Usage: "Only run scenarios whose name contains this",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

var scenarios = []scenario{
	{
		name:           "simple component",
		width:          10,
		staticFraction: 1,
		nSources:       2,
		totalLayers:    5,
		readFraction:   0.2,
		iterations:     600000,
	},
	{
		name:           "dynamic component",
		width:          10,
		totalLayers:    10,
		staticFraction: 0.75,
		nSources:       6,
		readFraction:   0.2,
		iterations:     15000,
	},
	{
		name:           "large web app",
		width:          1000,
		totalLayers:    12,
		staticFraction: 0.95,
		nSources:       4,
		readFraction:   1,
		iterations:     7000,
	},
	{
		name:           "wide dense",
		width:          1000,
		totalLayers:    5,
		staticFraction: 1,
		nSources:       25,
		readFraction:   1,
		iterations:     3000,
	},
	{
		name:           "deep",
		width:          5,
		totalLayers:    500,
		staticFraction: 1,
		nSources:       3,
		readFraction:   1,
		iterations:     500,
	},
	{
		name:           "very dynamic",
		width:          100,
		totalLayers:    15,
		staticFraction: 0.5,
		nSources:       6,
		readFraction:   1,
		iterations:     2000,
	},
}

type scenario struct {
	name           string  // unique, used by --scenario
	width          int     // nodes per layer
	totalLayers    int     // layers including the sources
	staticFraction float64 // fraction of nodes that always read all of their sources
	nSources       int     // sources read by each node
	readFraction   float64 // fraction of leaves read after every write
	iterations     int64
}

func (s scenario) title() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%dx%d %d sources", s.width, s.totalLayers, s.nSources))
	if s.staticFraction < 1 {
		sb.WriteString(" dynamic")
	}
	if s.readFraction < 1 {
		sb.WriteString(fmt.Sprintf(" read %0.2f%%", 100*s.readFraction))
	}
	return sb.String()
}

type result struct {
	sum      int
	count    int64
	duration time.Duration
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Print("Starting scenario benchmark, please wait...")
	defer log.Print("Finished scenario benchmark")

	repeats := int(cmd.Int(repeatsKey))
	filter := cmd.String(scenarioKey)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"size", "nSources", "read%", "static%",
		"nTimes", "test", "time", "evaluations", "updateRate", "title",
	})

	for _, s := range scenarios {
		if filter != "" && !strings.Contains(s.name, filter) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		best, err := s.best(repeats)
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}

		updateRate := float64(best.count) / (float64(best.duration) / float64(time.Millisecond))
		table.Append([]string{
			fmt.Sprintf("%dx%d", s.width, s.totalLayers),
			fmt.Sprint(s.nSources),
			fmt.Sprint(s.readFraction),
			fmt.Sprint(s.staticFraction),
			humanize.Comma(s.iterations),
			s.name,
			fmt.Sprint(best.duration),
			humanize.Comma(best.count),
			humanize.Comma(int64(updateRate)),
			s.title(),
		})
	}
	table.Render()
	return nil
}

// best builds a fresh graph for every run and keeps the fastest. All runs
// must agree on the leaf sum.
func (s scenario) best(repeats int) (*result, error) {
	best := &result{duration: time.Hour}
	var sum int
	for i := 0; i <= repeats; i++ {
		if i == 0 {
			log.Printf("Running '%s', warming up", s.name)
		} else {
			log.Printf("Running '%s', iteration %d/%d %d%%", s.name, i, repeats, i*100/repeats)
		}

		g := s.makeGraph()
		start := time.Now()
		got := g.run(s.iterations, s.readFraction)
		duration := time.Since(start)

		if i > 0 && got != sum {
			return nil, fmt.Errorf("leaf sum changed between runs: %d != %d", got, sum)
		}
		sum = got
		if i > 0 && duration < best.duration {
			best = &result{sum: got, count: g.count, duration: duration}
		}
	}
	return best, nil
}

type node interface {
	read() int
}

type source struct {
	obj *depwatch.Object
}

func (s source) read() int {
	return s.obj.Get("v").(int)
}

func (s source) write(v int) {
	s.obj.Set("v", v)
}

type memo struct {
	c *depwatch.Computed
}

func (m memo) read() int {
	return m.c.MustGet().(int)
}

type graph struct {
	rs      *depwatch.ReactiveSystem
	sources []source
	layers  [][]node
	count   int64
}

func (s scenario) makeGraph() *graph {
	rs := depwatch.CreateReactiveSystem(nil, depwatch.WithSilent())

	g := &graph{rs: rs, sources: make([]source, s.width)}
	prev := make([]node, s.width)
	for i := range g.sources {
		obj := depwatch.FromMap(map[string]any{"v": i})
		rs.Observe(obj)
		g.sources[i] = source{obj: obj}
		prev[i] = g.sources[i]
	}

	random := rand.New(rand.NewSource(0))
	for l := 1; l < s.totalLayers; l++ {
		prev = g.makeRow(prev, s.nSources, s.staticFraction, random)
		g.layers = append(g.layers, prev)
	}
	return g
}

func (g *graph) makeRow(sources []node, nSources int, staticFraction float64, random *rand.Rand) []node {
	row := make([]node, len(sources))
	for myDex := range sources {
		mySources := make([]node, 0, nSources)
		for sourceDex := 0; sourceDex < nSources; sourceDex++ {
			mySources = append(mySources, sources[(myDex+sourceDex)%len(sources)])
		}

		if random.Float64() < staticFraction {
			row[myDex] = memo{c: g.rs.Computed(nil, func() (any, error) {
				g.count++
				sum := 0
				for _, src := range mySources {
					sum += src.read()
				}
				return sum, nil
			})}
			continue
		}

		// dynamic node, skips one of its sources when the first is odd
		first, tail := mySources[0], mySources[1:]
		row[myDex] = memo{c: g.rs.Computed(nil, func() (any, error) {
			g.count++
			sum := first.read()
			shouldDrop := sum&0x1 > 0
			dropDex := 0
			if len(tail) > 0 {
				dropDex = sum % len(tail)
			}
			for i := range tail {
				if shouldDrop && i == dropDex {
					continue
				}
				sum += tail[i].read()
			}
			return sum, nil
		})}
	}
	return row
}

// run writes one source per iteration and reads a random subset of the
// leaves. It returns the sum of the leaves read.
func (g *graph) run(iterations int64, readFraction float64) int {
	random := rand.New(rand.NewSource(0))
	leaves := g.layers[len(g.layers)-1]
	skipCount := int(math.Round(float64(len(leaves)) * (1 - readFraction)))
	readLeaves := removeElems(leaves, skipCount, random)

	for i := 0; i < int(iterations); i++ {
		sourceDex := i % len(g.sources)
		g.sources[sourceDex].write(i + sourceDex)

		for _, leaf := range readLeaves {
			leaf.read()
		}
	}

	sum := 0
	for _, leaf := range readLeaves {
		sum += leaf.read()
	}
	return sum
}

func removeElems[T any](src []T, rmCount int, random *rand.Rand) []T {
	out := make([]T, len(src))
	copy(out, src)
	for i := 0; i < rmCount; i++ {
		rmDex := random.Intn(len(out))
		out[rmDex] = out[len(out)-1]
		out = out[:len(out)-1]
	}
	return out
}
