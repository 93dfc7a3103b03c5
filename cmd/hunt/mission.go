package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/primehuntdev/primehunt/internal/artifacts"
	"github.com/primehuntdev/primehunt/internal/deploy"
	"github.com/primehuntdev/primehunt/internal/hostconfig"
	"github.com/primehuntdev/primehunt/internal/manifest"
	"github.com/primehuntdev/primehunt/internal/mission"
	"github.com/primehuntdev/primehunt/internal/remote"
	"github.com/primehuntdev/primehunt/internal/status"
	"github.com/primehuntdev/primehunt/internal/tunnel"
	"github.com/primehuntdev/primehunt/internal/ui"
)

// MissionCmd monitors a running hunt until its runtime window closes, then
// stops the solver and pulls artifacts.
type MissionCmd struct {
	Runtime     time.Duration `help:"Override the manifest's runtime window."`
	Manifest    string        `short:"f" default:"hunt.yaml" help:"Mission manifest."`
	MetricsAddr string        `help:"Serve Prometheus metrics on this address (e.g. :9090)."`
	Plain       bool          `help:"Line-per-tick output instead of the dashboard."`
}

func (c *MissionCmd) Run(globals *CLI) error {
	hostName, cfg, err := loadHost(globals)
	if err != nil {
		return err
	}
	m, err := manifest.Parse(c.Manifest)
	if err != nil {
		return err
	}
	runtime := m.RuntimeDuration()
	if c.Runtime > 0 {
		runtime = c.Runtime
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess, err := remote.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Addr(), err)
	}
	defer func() { _ = sess.Close() }()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if globals.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	// The tunnel proxies the solver's web UI through the SSH connection.
	// A dead tunnel is replaced on the next tick, forever.
	sup := &tunnel.Supervisor{
		Spawn: func() (*tunnel.Handle, error) {
			return tunnel.Open(
				fmt.Sprintf("127.0.0.1:%d", cfg.LocalPort),
				fmt.Sprintf("127.0.0.1:%d", cfg.WebPort),
				sess,
			)
		},
	}
	if err := sup.Start(); err != nil {
		logger.Warn("web UI tunnel unavailable, will keep retrying", "err", err)
	}

	reg := prometheus.NewRegistry()
	metrics := mission.NewMetrics(reg)
	if c.MetricsAddr != "" {
		go serveMetrics(c.MetricsAddr, reg, logger)
	}

	fetcher := &status.Fetcher{Runner: sess, Path: cfg.StatusPath()}

	var resultDir string
	finalize := func(ctx context.Context) error {
		logger.Info("stopping solver", "host", hostName)
		if err := deploy.Stop(ctx, sess, cfg, m); err != nil {
			logger.Warn("stop solver", "err", err)
		}
		r := &artifacts.Retriever{Session: sess, RemoteDir: cfg.RemoteDir}
		dir, err := r.Pull(m.ArtifactList())
		resultDir = dir
		return err
	}

	loopCfg := mission.Config{
		Runtime:  runtime,
		Tunnel:   sup,
		Finalize: finalize,
		Logger:   logger,
		Metrics:  metrics,
	}

	if c.Plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		err = runMissionPlain(ctx, loopCfg, fetcher, hostName)
	} else {
		err = runMissionDashboard(ctx, cancel, loopCfg, fetcher, hostName, cfg, sup)
	}
	if err != nil {
		return err
	}

	if resultDir != "" {
		fmt.Println(ui.StepOK("Results saved to " + resultDir))
	}
	return nil
}

// runMissionPlain prints one status line per tick. Used for piped output
// and --plain.
func runMissionPlain(ctx context.Context, cfg mission.Config, f *status.Fetcher, hostName string) error {
	cfg.Fetch = f.Fetch
	cfg.Render = func(remaining time.Duration, s status.RemoteStatus) {
		fmt.Printf("[%s] %s  gen=%s sse=%s h_norm=%s status=%s\n",
			ui.Countdown(remaining), hostName, s.Generation, s.LastSSE, s.LastHNorm, s.Phase)
	}
	return mission.New(cfg).Run(ctx)
}

// runMissionDashboard runs the mission loop behind the Bubble Tea
// dashboard. The loop drives rendering by sending frame messages; quitting
// the dashboard cancels the loop, which still runs the shutdown sequence.
func runMissionDashboard(ctx context.Context, cancel context.CancelFunc, cfg mission.Config,
	f *status.Fetcher, hostName string, host *hostconfig.HostConfig, sup *tunnel.Supervisor) error {

	model := newMissionModel(hostName, host, cfg.Runtime)
	p := tea.NewProgram(model)

	cfg.Fetch = f.Fetch
	cfg.Render = func(remaining time.Duration, s status.RemoteStatus) {
		p.Send(frameMsg{
			remaining: remaining,
			status:    s,
			tunnel:    sup.State(),
			respawns:  sup.Respawns(),
		})
	}

	loop := mission.New(cfg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
		p.Send(missionDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("dashboard: %w", err)
	}
	// Dashboard closed before the mission ended (operator quit). Cancel so
	// the loop runs its finalize path, then wait for it.
	cancel()
	return <-errCh
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("metrics listener", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", "err", err)
	}
}
