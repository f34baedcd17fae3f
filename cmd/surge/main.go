package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/runningwild/surge/pkg/agent"
	"github.com/runningwild/surge/pkg/cluster"
	"github.com/runningwild/surge/pkg/config"
	"github.com/runningwild/surge/pkg/logging"
	"github.com/runningwild/surge/pkg/report"
	"github.com/runningwild/surge/pkg/storage"
	"github.com/runningwild/surge/pkg/sweep"
)

func main() {
	// Dispatch subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "agent":
			runAgentCmd()
			return
		case "remote":
			runRemoteCmd()
			return
		}
	}

	runBenchCmd(os.Args[1:])
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: surge <config_file> <threads> <block_count> <pct_set>")
	fmt.Fprintln(os.Stderr, "       surge agent [-port N] <config_file>")
	fmt.Fprintln(os.Stderr, "       surge remote -nodes host:port,... <config_file> <threads> <block_count> <pct_set>")
	os.Exit(2)
}

// loadConfig parses the four positional benchmark arguments onto the
// config file. Any malformed argument is a fatal usage error.
func loadConfig(args []string) *config.Config {
	if len(args) < 4 {
		usage()
	}

	cfg, err := config.Load(args[0])
	if err != nil {
		fatalf("failed to load config file: %v", err)
	}

	cfg.Threads = mustAtoi(args[1], "threads")
	cfg.BlockCount = mustAtoi(args[2], "block_count")
	cfg.PctSet = mustAtoi(args[3], "pct_set")

	logging.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		fatalf("invalid configuration: %v", err)
	}
	return cfg
}

func mustAtoi(s, name string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s %q\n", name, s)
		usage()
	}
	return v
}

func fatalf(format string, args ...interface{}) {
	logging.Errorf(format, args...)
	os.Exit(1)
}

func openDevice(cfg *config.Config, writable bool) (storage.Device, error) {
	switch cfg.EngineType {
	case "sync":
		return storage.OpenFile(cfg.Target, cfg.BlockSize, cfg.TotalBlocks, cfg.Direct, writable)
	case "uring":
		return storage.OpenUring(cfg.Target, cfg.BlockSize, cfg.TotalBlocks, cfg.UringEntries, cfg.Direct, writable)
	case "mem":
		return storage.NewMemDevice(cfg.TotalBlocks, cfg.BlockSize), nil
	}
	return nil, fmt.Errorf("unknown engine_type %q", cfg.EngineType)
}

// runBenchCmd handles "surge <config_file> <threads> <block_count> <pct_set>"
func runBenchCmd(args []string) {
	cfg := loadConfig(args)

	dev, err := openDevice(cfg, cfg.PctSet > 0)
	if err != nil {
		fatalf("failed to open target: %v", err)
	}
	defer dev.Close()

	s := sweep.New(cfg, dev, os.Stdout)
	rows, err := s.Run()
	if err != nil {
		fatalf("sweep failed: %v", err)
	}

	report.WriteTable(os.Stderr, rows)
}

// runAgentCmd handles "surge agent [-port N] <config_file>"
func runAgentCmd() {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	port := fs.Int("port", 9000, "Port to listen on")
	fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		usage()
	}
	cfg, err := config.Load(fs.Arg(0))
	if err != nil {
		fatalf("failed to load config file: %v", err)
	}
	logging.SetLevel(cfg.LogLevel)

	// The agent cannot know whether future requests include writes, so
	// the target is opened writable up front.
	dev, err := openDevice(cfg, true)
	if err != nil {
		fatalf("agent startup error: %v", err)
	}
	defer dev.Close()

	if err := agent.NewServer(cfg, dev).ListenAndServe(*port); err != nil {
		fatalf("agent failed: %v", err)
	}
}

// runRemoteCmd handles "surge remote -nodes ... <config_file> <threads> <block_count> <pct_set>".
// It drives the configured sweep with each level fanned out across the
// agents, merging their raw samples before summarizing.
func runRemoteCmd() {
	fs := flag.NewFlagSet("remote", flag.ExitOnError)
	nodesFlag := fs.String("nodes", "", "Comma-separated list of surge agent nodes (e.g. host1:9000)")
	fs.Parse(os.Args[2:])

	if *nodesFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: -nodes is required")
		usage()
	}
	nodes := strings.Split(*nodesFlag, ",")

	args := fs.Args()
	if len(args) < 4 {
		usage()
	}
	cfg, err := config.Load(args[0])
	if err != nil {
		fatalf("failed to load config file: %v", err)
	}
	threads := mustAtoi(args[1], "threads")
	blockCount := mustAtoi(args[2], "block_count")
	pctSet := mustAtoi(args[3], "pct_set")
	logging.SetLevel(cfg.LogLevel)
	if threads <= 0 || blockCount <= 0 || pctSet < 0 || pctSet > 100 {
		fmt.Fprintln(os.Stderr, "Error: invalid benchmark arguments")
		usage()
	}

	// Each level runs for the configured window plus scheduling slack.
	timeout := time.Duration(cfg.WindowUS)*time.Microsecond + 30*time.Second
	c := cluster.New(nodes, timeout)

	for rate := cfg.RateStart; rate <= cfg.RateStop; rate += cfg.RateStep {
		res, err := c.RunLevel(agent.RunRequest{
			Threads:    threads,
			BlockCount: blockCount,
			PctSet:     pctSet,
			OfferedRPS: rate,
		})
		if err != nil {
			fatalf("remote level %.0f failed: %v", rate, err)
		}

		row, err := report.Summarize(res.LatenciesUS, threads, rate, res.AchievedRPS, res.CPUUsage)
		if errors.Is(err, report.ErrNoSamples) {
			logging.Warnf("no completed samples at %.0f req/s; emitting sentinel row", rate)
			row = report.SentinelRow(threads, rate, res.CPUUsage)
		} else if err != nil {
			fatalf("summarize failed: %v", err)
		}
		fmt.Println(row.CSV())
	}
}
