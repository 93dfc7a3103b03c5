package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/huh"

	"github.com/primehuntdev/primehunt/internal/deploy"
	"github.com/primehuntdev/primehunt/internal/dotenv"
	"github.com/primehuntdev/primehunt/internal/hostconfig"
	"github.com/primehuntdev/primehunt/internal/manifest"
	"github.com/primehuntdev/primehunt/internal/remote"
	"github.com/primehuntdev/primehunt/internal/tui"
	"github.com/primehuntdev/primehunt/internal/ui"
)

// DeployCmd pushes the solver payload to a remote host, installs it as a
// service, and starts it.
type DeployCmd struct {
	Name      string `arg:"" help:"Name for this host."`
	Addr      string `short:"a" required:"" help:"Remote SSH host IP or hostname."`
	User      string `short:"u" default:"root" help:"SSH username."`
	SSHKey    string `short:"k" help:"Path to SSH private key."`
	Port      int    `short:"p" default:"22" help:"SSH port."`
	RemoteDir string `help:"Deployment root on the host." default:"/opt/primehunt"`
	WebPort   int    `help:"Solver web UI port on the host." default:"8080"`
	LocalPort int    `help:"Local port for the web UI tunnel." default:"8080"`
	Sysctl    bool   `help:"Apply kernel network tuning during deploy."`
	Manifest  string `short:"f" default:"hunt.yaml" help:"Mission manifest to deploy."`
	Yes       bool   `short:"y" help:"Skip the overwrite confirmation."`
}

func (c *DeployCmd) Run() error {
	m, err := manifest.Parse(c.Manifest)
	if err != nil {
		return err
	}
	// .env files beside the manifest feed the solver's environment; the
	// manifest's own env map wins on conflicts.
	env, err := dotenv.LoadMissionEnv(filepath.Dir(c.Manifest), m.Env)
	if err != nil {
		return err
	}
	m.Env = env

	cfg := &hostconfig.HostConfig{
		Name:         c.Name,
		SSHHost:      c.Addr,
		SSHPort:      c.Port,
		SSHUser:      c.User,
		SSHKeyPath:   c.SSHKey,
		RemoteDir:    c.RemoteDir,
		WebPort:      c.WebPort,
		LocalPort:    c.LocalPort,
		SysctlTuning: c.Sysctl,
	}
	cfg.ApplyDefaults()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// First contact: capture the host key, verify it on every later connect.
	sess, hostKey, err := remote.ConnectTOFU(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Addr(), err)
	}
	defer func() { _ = sess.Close() }()
	cfg.SSHHostKey = hostKey

	if deploy.HasExistingDeployment(ctx, sess, cfg.RemoteDir) && !c.Yes {
		ok, err := confirmOverwrite(cfg.RemoteDir)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Deploy aborted.")
			return nil
		}
	}

	steps := []tui.Step{
		{Title: "Create deployment layout", Run: func(ctx context.Context, progress func(string)) error {
			return deploy.EnsureLayout(ctx, sess, cfg.RemoteDir)
		}},
		{Title: "Upload payload", Run: func(ctx context.Context, progress func(string)) error {
			progress(fmt.Sprintf("Upload payload (%s)", m.Payload))
			return deploy.UploadPayload(sess, m, cfg.RemoteDir)
		}},
		{Title: "Install solver service", Run: func(ctx context.Context, progress func(string)) error {
			progress(fmt.Sprintf("Install solver service (%s)", m.ServiceMode()))
			return deploy.InstallService(ctx, sess, cfg, m)
		}},
	}
	if cfg.SysctlTuning {
		steps = append(steps, tui.Step{
			Title:    "Apply kernel network tuning",
			NonFatal: true,
			Run: func(ctx context.Context, progress func(string)) error {
				return deploy.ApplySysctlTuning(ctx, sess)
			},
		})
	}
	steps = append(steps,
		tui.Step{Title: "Verify entrypoint", Run: func(ctx context.Context, progress func(string)) error {
			return deploy.Verify(ctx, sess, cfg, m)
		}},
		tui.Step{Title: "Start solver", Run: func(ctx context.Context, progress func(string)) error {
			return deploy.Start(ctx, sess, cfg, m)
		}},
	)

	if err := tui.RunSteps(ctx, fmt.Sprintf("Deploying %s to %s", m.Name, cfg.Addr()), steps); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save host config: %w", err)
	}

	// Auto-set as default host if no default is configured yet.
	if gc, err := hostconfig.LoadGlobalConfig(); err == nil && gc.DefaultHost == "" {
		if err := hostconfig.SetDefaultHost(c.Name); err == nil {
			fmt.Printf("Default host set to %q.\n", c.Name)
		}
	}

	fmt.Println(ui.StepOK("Solver deployed. Run 'hunt mission' to monitor it."))
	return nil
}

func confirmOverwrite(remoteDir string) (bool, error) {
	fmt.Println(ui.Warn(fmt.Sprintf("Remote dir %s is not empty.", remoteDir)))
	// Piped stdin cannot answer the prompt; refuse rather than clobber.
	if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
		return false, fmt.Errorf("refusing to overwrite existing deployment (pass --yes to force)")
	}
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Overwrite the existing deployment?").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}
