package main

import (
	"context"
	"fmt"
	"os"

	"github.com/primehuntdev/primehunt/internal/artifacts"
	"github.com/primehuntdev/primehunt/internal/deploy"
	"github.com/primehuntdev/primehunt/internal/manifest"
	"github.com/primehuntdev/primehunt/internal/remote"
	"github.com/primehuntdev/primehunt/internal/ui"
	"github.com/primehuntdev/primehunt/internal/version"
)

// StartCmd starts the solver service on the host.
type StartCmd struct {
	Manifest string `short:"f" default:"hunt.yaml" help:"Mission manifest."`
}

func (c *StartCmd) Run(globals *CLI) error {
	_, cfg, err := loadHost(globals)
	if err != nil {
		return err
	}
	m, err := manifest.Parse(c.Manifest)
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := remote.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Addr(), err)
	}
	defer func() { _ = sess.Close() }()

	if err := deploy.Start(ctx, sess, cfg, m); err != nil {
		return err
	}
	fmt.Println(ui.StepOK("Solver started."))
	return nil
}

// StopCmd stops the solver service on the host.
type StopCmd struct {
	Manifest string `short:"f" default:"hunt.yaml" help:"Mission manifest."`
}

func (c *StopCmd) Run(globals *CLI) error {
	_, cfg, err := loadHost(globals)
	if err != nil {
		return err
	}
	m, err := manifest.Parse(c.Manifest)
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := remote.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Addr(), err)
	}
	defer func() { _ = sess.Close() }()

	if err := deploy.Stop(ctx, sess, cfg, m); err != nil {
		return err
	}
	fmt.Println(ui.StepOK("Solver stopped."))
	return nil
}

// RetrieveCmd pulls mission artifacts without waiting for the runtime
// window. The solver keeps running.
type RetrieveCmd struct {
	Manifest string `short:"f" default:"hunt.yaml" help:"Mission manifest."`
}

func (c *RetrieveCmd) Run(globals *CLI) error {
	_, cfg, err := loadHost(globals)
	if err != nil {
		return err
	}
	m, err := manifest.Parse(c.Manifest)
	if err != nil {
		return err
	}
	sess, err := remote.Connect(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Addr(), err)
	}
	defer func() { _ = sess.Close() }()

	r := &artifacts.Retriever{Session: sess, RemoteDir: cfg.RemoteDir}
	dir, err := r.Pull(m.ArtifactList())
	if dir != "" {
		fmt.Println(ui.StepOK("Results saved to " + dir))
	}
	return err
}

// InitCmd generates a hunt.yaml scaffold.
type InitCmd struct{}

func (c *InitCmd) Run() error {
	path := "hunt.yaml"
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("hunt.yaml already exists")
	}

	scaffold := `name: myhunt
host: ""

payload: ./solver
command: python3 -u spectral_hunt.py
service: systemd
runtime: 6h

artifacts:
  - simulation_data/
  - provenance_reports/
  - simulation_ledger.csv

env:
  PYTHONUNBUFFERED: "1"
`
	if err := os.WriteFile(path, []byte(scaffold), 0644); err != nil {
		return err
	}
	fmt.Println("Created hunt.yaml")
	return nil
}

// VersionCmd prints version info.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("hunt %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.Date)
	return nil
}
