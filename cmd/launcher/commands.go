package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/vyltrex/launcher/internal/apperr"
	"github.com/vyltrex/launcher/internal/config"
	"github.com/vyltrex/launcher/internal/install"
	"github.com/vyltrex/launcher/internal/logging"
	"github.com/vyltrex/launcher/internal/service"
)

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	verbosity  int
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configPath, "config", "c", "", "Lua config file")
	fs.CountVarP(&c.verbosity, "verbose", "v", "increase log verbosity")
}

// setup loads configuration and wires the launcher.
func (c *commonFlags) setup(ctx context.Context) (*service.Launcher, *config.Config, error) {
	logger := logging.Setup(c.verbosity)

	cfg, err := config.Load(ctx, config.Options{Path: c.configPath, Logger: logger})
	if err != nil {
		return nil, nil, errors.New(config.FormatError(err, c.verbosity > 0))
	}

	if v := verbosityFor(cfg.LogLevel); v > c.verbosity {
		logger = logging.Setup(v)
	}

	l, err := service.FromConfig(cfg, service.RealClock{}, logger.Component("launcher"))
	if err != nil {
		return nil, nil, err
	}
	return l, cfg, nil
}

func verbosityFor(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return 2
	case "info":
		return 1
	default:
		return 0
	}
}

func parseFlags(name string, args []string, extra func(*pflag.FlagSet)) (*commonFlags, []string, error) {
	common := &commonFlags{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	common.register(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return common, fs.Args(), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runList handles the `launcher list` subcommand
func runList(args []string) error {
	var asJSON bool
	common, rest, err := parseFlags("list", args, func(fs *pflag.FlagSet) {
		fs.BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	})
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, _, err := common.setup(ctx)
	if err != nil {
		return err
	}

	entries := l.ListCatalog()
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return printCatalog(os.Stdout, entries)
}

func printCatalog(w io.Writer, entries []service.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "The catalog is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tINSTALLED")
	for _, e := range entries {
		mark := ""
		if e.Installed {
			mark = "✓"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Category, mark)
	}
	return tw.Flush()
}

// runInstall handles the `launcher install` subcommand
func runInstall(args []string) error {
	var quiet bool
	common, ids, err := parseFlags("install", args, func(fs *pflag.FlagSet) {
		fs.BoolVarP(&quiet, "quiet", "q", false, "do not print progress")
	})
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("install requires at least one package id")
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, _, err := common.setup(ctx)
	if err != nil {
		return err
	}

	var failed []string
	var firstErr error
	for _, id := range ids {
		var sink install.ProgressFunc
		if !quiet {
			sink = progressPrinter(os.Stderr)
		}
		res, err := l.Install(ctx, id, sink)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", id, err)
			failed = append(failed, id)
			if firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fmt.Printf("✓ %s installed in %s (%s)\n", id, res.Record.ResolvedBaseDir, res.Duration.Round(time.Millisecond))
	}

	switch {
	case firstErr == nil:
		return nil
	case len(ids) == 1:
		return firstErr
	default:
		// the first failure's kind decides the exit code
		return fmt.Errorf("%d of %d installs failed (%s): %w", len(failed), len(ids), strings.Join(failed, ", "), firstErr)
	}
}

// progressPrinter renders progress on a single terminal line per stage.
func progressPrinter(w io.Writer) install.ProgressFunc {
	var current install.Stage
	return func(p install.Progress) {
		if p.Stage != current && current != "" {
			fmt.Fprintln(w)
		}
		current = p.Stage
		if p.Stage.Terminal() {
			fmt.Fprintf(w, "\r%-12s %s\n", p.Stage, p.PackageID)
			current = ""
			return
		}
		fmt.Fprintf(w, "\r%-12s %s %3.0f%%", p.Stage, p.PackageID, p.Percent)
	}
}

// runUninstall handles the `launcher uninstall` subcommand
func runUninstall(args []string) error {
	common, ids, err := parseFlags("uninstall", args, nil)
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return fmt.Errorf("uninstall requires exactly one package id")
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, _, err := common.setup(ctx)
	if err != nil {
		return err
	}
	if err := l.Uninstall(ids[0]); err != nil {
		return err
	}
	fmt.Printf("✓ %s uninstalled\n", ids[0])
	return nil
}

// runLaunch handles the `launcher launch` subcommand
func runLaunch(args []string) error {
	var exe string
	common, ids, err := parseFlags("launch", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&exe, "exe", "", "entry point to use when the install record has none")
	})
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return fmt.Errorf("launch requires exactly one package id")
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, _, err := common.setup(ctx)
	if err != nil {
		return err
	}
	res, err := l.Launch(ctx, ids[0], exe)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s started (pid %d)\n", ids[0], res.PID)
	return nil
}

// runStatus handles the `launcher status` subcommand
func runStatus(args []string) error {
	common, rest, err := parseFlags("status", args, nil)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, cfg, err := common.setup(ctx)
	if err != nil {
		return err
	}

	ids := l.InstalledIDs()
	if len(ids) == 0 {
		fmt.Println("No packages installed.")
		fmt.Printf("State file: %s\n", cfg.StorePath())
		return nil
	}

	records := l.Installed()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tENTRY POINT\tINSTALLED")
	for _, id := range ids {
		rec := records[id]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, rec.EntryPointPath(), humanize.Time(rec.InstalledAt))
	}
	return tw.Flush()
}

// exitCode maps error kinds to process exit codes.
func exitCode(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound, apperr.KindNotInstalled:
		return 3
	case apperr.KindBusy:
		return 4
	case apperr.KindDigestMismatch, apperr.KindFormat:
		return 5
	case apperr.KindNetwork:
		return 6
	default:
		return 1
	}
}
