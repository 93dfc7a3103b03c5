package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/primehuntdev/primehunt/internal/hostconfig"
	"github.com/primehuntdev/primehunt/internal/manifest"
)

// CLI is the top-level Kong struct.
type CLI struct {
	Verbose bool   `short:"v" help:"Verbose output."`
	Host    string `short:"H" help:"Host name from ~/.config/primehunt/hosts/."`

	Deploy   DeployCmd   `cmd:"" help:"Push the solver to a remote host and start it."`
	Mission  MissionCmd  `cmd:"" help:"Monitor a running hunt until its window closes, then retrieve results."`
	Status   StatusCmd   `cmd:"" help:"Print the solver's current status once."`
	Start    StartCmd    `cmd:"" help:"Start the solver service on the host."`
	Stop     StopCmd     `cmd:"" help:"Stop the solver service on the host."`
	Retrieve RetrieveCmd `cmd:"" help:"Pull mission artifacts into a timestamped local directory."`
	Hosts    HostCmd     `cmd:"" name:"host" help:"Manage host registry."`
	Init     InitCmd     `cmd:"" help:"Generate a hunt.yaml scaffold."`
	Version  VersionCmd  `cmd:"" help:"Print version."`
}

func main() {
	var cli CLI
	k, err := kong.New(&cli,
		kong.Name("hunt"),
		kong.Description("primehunt CLI — run spectral attractor hunts on a remote host"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			NoExpandSubcommands: true,
			Compact:             true,
		}),
	)
	if err != nil {
		panic(err)
	}

	args := os.Args[1:]
	// No args or bare "help" → print usage and exit 0 (not an error).
	// Passing --help to k.Parse lets Kong handle the print+exit itself.
	if len(args) == 0 || (len(args) == 1 && args[0] == "help") {
		_, _ = k.Parse([]string{"--help"})
		os.Exit(0) // unreachable; defensive fallback
	}

	ctx, err := k.Parse(args)
	k.FatalIfErrorf(err)
	k.FatalIfErrorf(ctx.Run(&cli))
}

// resolveHost returns the host name to use, in order of precedence:
// 1. --host flag (globals.Host)
// 2. host: field in ./hunt.yaml
// 3. default_host in ~/.config/primehunt/config.toml
func resolveHost(globals *CLI) (string, error) {
	if globals.Host != "" {
		return globals.Host, nil
	}
	m, err := manifest.Parse("hunt.yaml")
	if err == nil && m.Host != "" {
		return m.Host, nil
	}
	cfg, err := hostconfig.LoadGlobalConfig()
	if err == nil && cfg.DefaultHost != "" {
		return cfg.DefaultHost, nil
	}
	return "", fmt.Errorf("--host <name> required (or set host: in hunt.yaml, or run 'hunt host default <name>')")
}

// loadHost loads and defaults the named host config.
func loadHost(globals *CLI) (string, *hostconfig.HostConfig, error) {
	name, err := resolveHost(globals)
	if err != nil {
		return "", nil, err
	}
	cfg, err := hostconfig.Load(name)
	if err != nil {
		return "", nil, fmt.Errorf("load host config: %w", err)
	}
	return name, cfg, nil
}
