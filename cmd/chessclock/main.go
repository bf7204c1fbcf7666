package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/BYTE-6D65/chessclock/pkg/clock"
	"github.com/BYTE-6D65/chessclock/pkg/config"
	"github.com/BYTE-6D65/chessclock/pkg/emitter"
	"github.com/BYTE-6D65/chessclock/pkg/event"
	"github.com/BYTE-6D65/chessclock/pkg/session"
	"github.com/BYTE-6D65/chessclock/pkg/side"
	"github.com/BYTE-6D65/chessclock/pkg/telemetry"
	"github.com/BYTE-6D65/chessclock/pkg/theme"
)

var (
	// Version can be set with the Go linker.
	Version = "0.1.0"
	// AppName is shown in help and log prefixes.
	AppName = "chessclock"
)

// flagValues holds the raw command-line values; only flags the user set
// override the file and environment.
type flagValues struct {
	configPath     string
	time           string
	timeLeft       string
	timeRight      string
	increment      string
	incrementLeft  string
	incrementRight string
	start          string
	theme          string
	numpad         bool
	addSeconds     uint
	fps            int
	metricsAddr    string
	logFile        string
}

var flags flagValues

var (
	rootCmd = &cobra.Command{
		Use:   AppName,
		Short: "A two-player chess clock for the terminal",
		Long: `A two-player chess clock for the terminal.

Times use "[HH:]MM:SS"; a bare number is minutes for times and seconds
for increments. Per-side values default to the shared ones.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show version and platform information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", AppName, Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			fmt.Fprintf(cmd.OutOrStdout(), "\n  Themes: %s\n",
				strings.Join(theme.Builtin(clock.NewSystemClock()).Names(), ", "))
			return nil
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "JSON config file")
	pf.StringVarP(&flags.time, "time", "t", config.DefaultTime, `time for both players, "[HH:]MM:SS" or "MM"`)
	pf.StringVarP(&flags.timeLeft, "time-l", "l", "", "time for the left clock, defaults to --time")
	pf.StringVarP(&flags.timeRight, "time-r", "r", "", "time for the right clock, defaults to --time")
	pf.StringVarP(&flags.increment, "increment", "T", "0", `increment for both players, "[[HH:]MM:]SS"`)
	pf.StringVarP(&flags.incrementLeft, "increment-l", "L", "", "increment for the left clock, defaults to --increment")
	pf.StringVarP(&flags.incrementRight, "increment-r", "R", "", "increment for the right clock, defaults to --increment")
	pf.StringVarP(&flags.start, "start", "s", "left", "side whose clock runs first")
	pf.StringVar(&flags.theme, "theme", theme.DefaultName, "colour theme")
	pf.BoolVar(&flags.numpad, "numpad", false, "move the right player's keys to the numpad")
	pf.UintVar(&flags.addSeconds, "add-seconds", 15, "seconds added by the add-time keys")
	pf.IntVar(&flags.fps, "fps", 30, "redraws per second")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	pf.StringVar(&flags.logFile, "log-file", "", "write logs to this file")

	rootCmd.AddCommand(versionCmd, configCmd)
}

// resolveConfig layers defaults, the config file, the environment and the
// flags the user actually set.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(afero.NewOsFs(), flags.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	strs := []struct {
		name string
		src  string
		dst  *string
	}{
		{"time", flags.time, &cfg.Time},
		{"time-l", flags.timeLeft, &cfg.TimeLeft},
		{"time-r", flags.timeRight, &cfg.TimeRight},
		{"increment", flags.increment, &cfg.Increment},
		{"increment-l", flags.incrementLeft, &cfg.IncrementLeft},
		{"increment-r", flags.incrementRight, &cfg.IncrementRight},
		{"theme", flags.theme, &cfg.Theme},
		{"metrics-addr", flags.metricsAddr, &cfg.MetricsAddr},
		{"log-file", flags.logFile, &cfg.LogFile},
	}
	for _, s := range strs {
		if changed(s.name) {
			*s.dst = s.src
		}
	}

	if changed("start") {
		if cfg.Start, err = side.Parse(flags.start); err != nil {
			return cfg, fmt.Errorf("--start: %w", err)
		}
	}
	if changed("numpad") {
		cfg.Numpad = flags.numpad
	}
	if changed("add-seconds") {
		cfg.AddSeconds = flags.addSeconds
	}
	if changed("fps") {
		cfg.FPS = flags.fps
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) error {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, AppName)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clk := clock.NewSystemClock()

	bus := event.NewInMemoryBus(event.WithDropSlow(true))
	defer bus.Close()

	registry := prometheus.NewRegistry()
	metrics := telemetry.InitMetrics(registry)

	sess, err := session.New(cfg, clk, session.WithBus(bus), session.WithMetrics(metrics))
	if err != nil {
		return err
	}
	telemetry.RegisterRemaining(registry, sess.Times)
	telemetry.RegisterDropped(registry, bus.Dropped)
	log.Printf("session %s started: %s", sess.ID(), strings.ReplaceAll(cfg.String(), "\n", " "))

	if _, err := emitter.Attach(ctx, bus, emitter.NewLog(nil), event.Filter{Types: []string{"clock.*"}}); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, registry)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	themes := theme.Builtin(clk)
	if !themes.Has(cfg.Theme) {
		log.Printf("unknown theme %q, using %s (available: %v)", cfg.Theme, theme.DefaultName, themes.Names())
	}
	th, err := themes.Get(cfg.Theme, false)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newModel(ctx, sess, th, cfg.Refresh()), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func serveMetrics(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()
	log.Printf("serving metrics on %s/metrics", addr)
	return srv
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %s\n", AppName, err)
		os.Exit(1)
	}
}
