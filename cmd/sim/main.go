// Command sim runs a packet-network simulation from a topology
// configuration file (spec.md §6).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/apex/log"
	apexcli "github.com/apex/log/handlers/cli"
	"golang.org/x/sync/errgroup"

	"github.com/ooni-desnet/desnet"
)

func main() {
	debug := flag.Bool("d", false, "enable event traces on the diagnostics stream")
	debugInteractive := flag.Bool("dd", false, "like -d, and also pause between events")
	batchDir := flag.String("batch", "", "run every *.json topology file in this directory concurrently")
	flag.Parse()

	// Flags may also follow the config path, as in the usage line below.
	var positional []string
	for flag.NArg() > 0 {
		positional = append(positional, flag.Arg(0))
		_ = flag.CommandLine.Parse(flag.Args()[1:])
	}

	log.SetHandler(apexcli.Default)
	if *debug || *debugInteractive {
		log.SetLevel(log.DebugLevel)
	}

	if *batchDir != "" {
		os.Exit(runBatch(*batchDir, *debug || *debugInteractive, *debugInteractive))
	}

	if len(positional) != 1 {
		fmt.Fprintln(os.Stderr, "usage: sim <config.json> [-d | -dd]")
		os.Exit(1)
	}
	os.Exit(runOne(positional[0], *debug || *debugInteractive, *debugInteractive))
}

// runOne loads, runs, and reports on a single topology file. It returns
// the process exit code: 0 clean, 1 config error, 2 internal invariant
// violation (spec.md §1.4 of SPEC_FULL.md).
func runOne(path string, traceEvents bool, interactive bool) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("desnet: internal invariant violation: %v", r)
			exitCode = 2
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Error("reading topology file")
		return 1
	}

	cfg, err := desnet.ParseTopology(data)
	if err != nil {
		log.WithError(err).Error("parsing topology file")
		return 1
	}

	sink, err := desnet.CreateJSONMetricsSink(path)
	if err != nil {
		log.WithError(err).Error("creating metrics log")
		return 1
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("closing metrics log")
		}
	}()

	sim, err := cfg.Build(log.Log, sink)
	if err != nil {
		log.WithError(err).Error("invalid topology configuration")
		return 1
	}

	if traceEvents {
		stdin := bufio.NewReader(os.Stdin)
		sim.Trace = func(s *desnet.Simulation, ev desnet.Event) {
			log.Debugf("t=%s dispatch %T", s.Now(), ev)
			if interactive {
				fmt.Fprint(os.Stderr, "-- press enter to continue --")
				_, _ = stdin.ReadString('\n')
			}
		}
	}

	sim.RunUntilEmpty()

	log.Infof("simulation complete: %d packets dropped, %d routing misses", sim.LossCount(), sim.RoutingMissCount())
	printSummary(sink)

	return 0
}

// runBatch runs every *.json file in dir concurrently, one [desnet.Simulation]
// per file, via golang.org/x/sync/errgroup — each simulation owns its
// state exclusively (spec.md §5; SPEC_FULL.md §3.6).
func runBatch(dir string, traceEvents, interactive bool) int {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		log.WithError(err).Error("globbing batch directory")
		return 1
	}
	sort.Strings(matches)

	var g errgroup.Group
	failed := false
	for _, path := range matches {
		path := path
		g.Go(func() error {
			if code := runOne(path, traceEvents, interactive); code != 0 {
				failed = true
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed {
		return 1
	}
	return 0
}

// printSummary prints the end-of-run RTT/occupancy statistics computed
// from sink, in sorted key order so repeated identical runs print
// identical summaries (spec.md §6 determinism contract).
func printSummary(sink *desnet.JSONMetricsSink) {
	summary, err := sink.Summarize()
	if err != nil {
		log.WithError(err).Warn("computing summary statistics")
		return
	}

	for _, id := range desnet.SortedKeys(summary.FlowRTTMedianSeconds) {
		log.Infof("flow %s: median rtt=%.3fs p95 rtt=%.3fs",
			id, summary.FlowRTTMedianSeconds[id], summary.FlowRTTP95Seconds[id])
	}

	for _, id := range desnet.SortedKeys(summary.LinkBufferOccMedian) {
		log.Infof("link %s: median buffer occupancy=%.3f", id, summary.LinkBufferOccMedian[id])
	}
}
