package main

import (
	"context"
	"fmt"

	"github.com/primehuntdev/primehunt/internal/remote"
	"github.com/primehuntdev/primehunt/internal/status"
)

// StatusCmd fetches and prints the solver's status once.
type StatusCmd struct{}

func (c *StatusCmd) Run(globals *CLI) error {
	hostName, cfg, err := loadHost(globals)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := remote.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Addr(), err)
	}
	defer func() { _ = sess.Close() }()

	f := &status.Fetcher{Runner: sess, Path: cfg.StatusPath()}
	s := f.Fetch(ctx)
	fmt.Printf("%s: %s\n", hostName, plainStatusLine(s))
	return nil
}
