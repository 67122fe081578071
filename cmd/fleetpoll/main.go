// cmd/fleetpoll/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/modbus-fleet/internal/compare"
	"github.com/tamzrod/modbus-fleet/internal/config"
	"github.com/tamzrod/modbus-fleet/internal/logging"
	"github.com/tamzrod/modbus-fleet/internal/metrics"
	"github.com/tamzrod/modbus-fleet/internal/poller"
	"github.com/tamzrod/modbus-fleet/internal/telemetry"
	"github.com/tamzrod/modbus-fleet/internal/telnet"
	"github.com/tamzrod/modbus-fleet/internal/watch"
	"github.com/tamzrod/modbus-fleet/internal/writer"
)

type options struct {
	configPath string
	mode       string
	interval   time.Duration
	units      []int
	addr       string
	generation string
	noColor    bool
	stats      bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "fleetpoll: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var (
		o     options
		units string
	)

	fs := flag.NewFlagSet("fleetpoll", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "fleet.yaml", "fleet configuration file")
	fs.StringVar(&o.mode, "mode", "run", "run | once | watch | compare | scan")
	fs.DurationVar(&o.interval, "interval", 0, "override poll interval (e.g. 5s)")
	fs.StringVar(&units, "units", "", "comma-separated unit numbers (default: all)")
	fs.StringVar(&o.addr, "addr", "", "scan: unit address (host or host:port)")
	fs.StringVar(&o.generation, "gen", "", "scan: generation name (default: first)")
	fs.BoolVar(&o.noColor, "no-color", false, "compare: disable ANSI colors")
	fs.BoolVar(&o.stats, "stats", false, "compare: add mean / std-dev columns")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch o.mode {
	case "run", "once", "watch", "compare", "scan":
	default:
		return o, fmt.Errorf("unknown mode %q", o.mode)
	}

	nums, err := parseUnits(units)
	if err != nil {
		return o, err
	}
	o.units = nums

	return o, nil
}

func parseUnits(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid unit number %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func run(o options) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	config.ApplyEnv(cfg)

	if o.interval > 0 {
		cfg.Fleet.Poll.IntervalMs = int(o.interval / time.Millisecond)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	f := cfg.Fleet

	log, err := logging.New(f.Log.Level, f.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Modes without sinks
	// --------------------

	switch o.mode {
	case "scan":
		return scan(f, o, log)
	case "compare":
		return compareFleet(ctx, f, o, log)
	}

	units, err := poller.Units(f)
	if err != nil {
		return err
	}
	units, err = poller.Select(units, o.units)
	if err != nil {
		return err
	}

	if f.Metrics.Listen != "" {
		go serveMetrics(f.Metrics.Listen, log)
	}

	// --------------------
	// Sinks + poller
	// --------------------

	w, closeSinks, err := writer.Build(f, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSinks(); err != nil {
			log.Warn("sink close failed", zap.Error(err))
		}
	}()

	var sink poller.Sink = w
	if o.mode == "watch" {
		sink = &watchSink{next: w, tracker: watch.NewTracker(), log: log}
	}

	p, err := poller.Build(f, units, sink, log)
	if err != nil {
		return err
	}

	if o.mode == "once" {
		b, err := p.Cycle(ctx)
		if rerr := watch.RenderSummary(os.Stdout, b, expected(units)); rerr != nil {
			return rerr
		}
		return err
	}

	p.Run(ctx)
	return nil
}

func scan(f config.FleetConfig, o options, log *zap.Logger) error {
	req, err := poller.ScanRequest(f, o.addr, o.generation)
	if err != nil {
		return err
	}

	log.Info("scanning", zap.String("endpoint", req.Endpoint), zap.Uint16("base", req.Base), zap.Uint16("length", req.Length))

	entries, err := poller.Scan(poller.NewReader(poller.ModbusDialer), req)
	if err != nil {
		return err
	}
	return poller.RenderScan(os.Stdout, req.Endpoint, entries)
}

func compareFleet(ctx context.Context, f config.FleetConfig, o options, log *zap.Logger) error {
	units, err := poller.Units(f)
	if err != nil {
		return err
	}
	units, err = poller.Select(units, o.units)
	if err != nil {
		return err
	}

	targets := make([]compare.Target, 0, len(units))
	for _, u := range units {
		targets = append(targets, compare.Target{Unit: u.Number, Address: u.Address, Serial: u.Serial})
	}

	client := telnet.New(telnet.Config{
		Port:    f.Telnet.Port,
		Prompt:  f.Telnet.Prompt,
		Command: f.Telnet.Command,
		Timeout: f.Telnet.Timeout(),
	})

	cols := compare.Collect(ctx, targets, client, log)
	return compare.Render(os.Stdout, compare.Compare(cols), compare.RenderOptions{
		Color: !o.noColor,
		Stats: o.stats,
	})
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server failed", zap.Error(err))
	}
}

func expected(units []poller.Unit) watch.Expected {
	out := make(watch.Expected, len(units))
	for _, u := range units {
		out[u.Number] = u.Serial
	}
	return out
}

// watchSink prints what changed since the previous cycle, then forwards
// the batch unchanged.
type watchSink struct {
	next    poller.Sink
	tracker *watch.Tracker
	log     *zap.Logger
}

func (s *watchSink) WriteBatch(ctx context.Context, b telemetry.Batch) error {
	if err := watch.RenderReport(os.Stdout, s.tracker.Observe(b)); err != nil {
		s.log.Warn("watch render failed", zap.Error(err))
	}
	return s.next.WriteBatch(ctx, b)
}
