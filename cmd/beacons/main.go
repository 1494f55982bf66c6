// Command beacons reconstructs the global beacon map from a scanner report
// and prints the beacon count, every scanner position and the largest
// Manhattan distance between two scanners.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/beacon.report/internal/config"
	"github.com/banshee-data/beacon.report/internal/monitoring"
	"github.com/banshee-data/beacon.report/internal/scanner/l1records"
	"github.com/banshee-data/beacon.report/internal/scanner/l3align"
	"github.com/banshee-data/beacon.report/internal/scanner/l4registration"
	"github.com/banshee-data/beacon.report/internal/scanner/monitor"
	"github.com/banshee-data/beacon.report/internal/scanner/storage/sqlite"
	"github.com/banshee-data/beacon.report/internal/timeutil"
	"github.com/banshee-data/beacon.report/internal/version"
)

// errUsage marks command-line mistakes; they exit with status 2.
var errUsage = errors.New("usage error")

// clock times the reconstruction and stamps saved runs.
var clock timeutil.Clock = timeutil.RealClock{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "beacons: %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "beacons: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	input      string
	configPath string
	threshold  int
	reference  int
	workers    int
	database   string
	chart      string
	plot       string
	listen     string
	verbose    bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, *config.RegistrationConfig, error) {
	fs := flag.NewFlagSet("beacons", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.input, "input", "", "Scanner report to reconstruct (required)")
	fs.StringVar(&o.configPath, "config", "", "Registration config file (.json, .yaml or .yml)")
	fs.IntVar(&o.threshold, "threshold", config.DefaultOverlapThreshold, "Minimum shared beacons for two scanners to overlap")
	fs.IntVar(&o.reference, "reference", 0, "Scanner ID that defines the global frame (default: first scanner in the report)")
	fs.IntVar(&o.workers, "workers", config.DefaultWorkers, "Concurrent alignments per pass; 1 runs sequentially")
	fs.StringVar(&o.database, "db", "", "SQLite run store to record the reconstruction in")
	fs.StringVar(&o.chart, "chart", "", "Write an HTML scatter chart of the result to this file")
	fs.StringVar(&o.plot, "plot", "", "Write a static plot of the result to this file (.png, .svg, .pdf)")
	fs.StringVar(&o.listen, "listen", "", "Serve /debug/ pages on this address until interrupted")
	fs.BoolVar(&o.verbose, "v", false, "Enable diagnostic logging")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	if o.version {
		return &o, nil, nil
	}
	if o.input == "" {
		return nil, nil, fmt.Errorf("%w: -input is required", errUsage)
	}

	cfg := config.DefaultRegistrationConfig()
	if o.configPath != "" {
		loaded, err := config.LoadRegistrationConfig(o.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg.Merge(loaded)
	}

	// Flags given explicitly win over the config file.
	overrides := config.EmptyRegistrationConfig()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threshold":
			overrides.OverlapThreshold = config.Int(o.threshold)
		case "reference":
			overrides.ReferenceScanner = config.Int(o.reference)
		case "workers":
			overrides.Workers = config.Int(o.workers)
		case "db":
			overrides.Database = config.String(o.database)
		case "v":
			if o.verbose && cfg.GetLogLevel() == config.LogLevelOps {
				overrides.LogLevel = config.String(config.LogLevelDiag)
			}
		}
	})
	cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return &o, cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, version.String())
		return nil
	}

	streams, err := monitoring.StreamsForLevel(cfg.GetLogLevel(), stderr)
	if err != nil {
		return err
	}
	l3align.SetLogWriters(streams.Ops, streams.Diag, streams.Trace)
	l4registration.SetLogWriters(streams.Ops, streams.Diag, streams.Trace)
	monitoring.SetLogger(log.New(stderr, "[beacons] ", log.LstdFlags).Printf)
	defer func() {
		l3align.SetLogWriters(nil, nil, nil)
		l4registration.SetLogWriters(nil, nil, nil)
		monitoring.SetLogger(log.Printf)
	}()

	records, err := l1records.ParseFile(o.input)
	if err != nil {
		return err
	}

	engineOpts := l4registration.Options{
		Threshold: cfg.GetOverlapThreshold(),
		Workers:   cfg.GetWorkers(),
	}
	if ref, ok := cfg.GetReferenceScanner(); ok {
		engineOpts.ReferenceID = &ref
	}
	start := clock.Now()
	res, err := l4registration.Reconstruct(ctx, records, engineOpts)
	if err != nil {
		return fmt.Errorf("reconstruction failed: %w", err)
	}
	monitoring.Logf("reconstructed %d scanners into %d beacons in %v", len(res.Placements), res.BeaconCount, clock.Since(start))

	printResult(stdout, res)

	if o.chart != "" {
		if err := writeChart(o.chart, filepath.Base(o.input), res); err != nil {
			return err
		}
	}
	if o.plot != "" {
		if err := monitor.SavePlot(o.plot, res); err != nil {
			return err
		}
	}

	var db *sqlite.DB
	if path := cfg.GetDatabase(); path != "" {
		db, err = sqlite.OpenWithClock(path, clock)
		if err != nil {
			return err
		}
		defer db.Close()

		saved := sqlite.RunFromResult(o.input, res)
		if err := sqlite.NewRunStore(db).SaveRun(ctx, saved); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		monitoring.Logf("saved run %s to %s", saved.RunID, path)
	}

	if o.listen != "" {
		return serve(ctx, o.listen, db, res)
	}
	return nil
}

func printResult(w io.Writer, res *l4registration.Result) {
	fmt.Fprintf(w, "Number of beacons = %d\n", res.BeaconCount)
	for _, p := range res.Placements {
		fmt.Fprintf(w, "%d: %s\n", p.ScannerID, p.Position)
	}
	fmt.Fprintf(w, "Maximum distance = %d\n", res.MaxScannerDistance())
}

func writeChart(path, title string, res *l4registration.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := monitor.RenderChart(f, title, res); err != nil {
		f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}

// serve exposes the debug pages for res until ctx is cancelled.
func serve(ctx context.Context, addr string, db *sqlite.DB, res *l4registration.Result) error {
	mux := http.NewServeMux()
	if err := monitor.AttachDebugRoutes(mux, db, func() *l4registration.Result { return res }); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	server := &http.Server{Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()
	monitoring.Logf("serving debug pages on http://%s/debug/", ln.Addr())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down debug server: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
