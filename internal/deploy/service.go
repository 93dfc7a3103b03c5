package deploy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/primehuntdev/primehunt/internal/hostconfig"
	"github.com/primehuntdev/primehunt/internal/manifest"
	"github.com/primehuntdev/primehunt/internal/remote"
)

const unitTemplate = `[Unit]
Description=primehunt solver (%s)
After=network.target

[Service]
WorkingDirectory=%s
ExecStart=%s
Restart=on-failure
RestartSec=5
%s
[Install]
WantedBy=multi-user.target
`

// UnitName returns the systemd unit name for a mission.
func UnitName(m *manifest.Mission) string {
	return "primehunt-" + m.Name + ".service"
}

// RenderUnit produces the systemd unit file for a mission.
func RenderUnit(cfg *hostconfig.HostConfig, m *manifest.Mission) string {
	var env strings.Builder
	for _, k := range sortedKeys(m.Env) {
		fmt.Fprintf(&env, "Environment=%s=%s\n", k, m.Env[k])
	}
	return fmt.Sprintf(unitTemplate, m.Name, cfg.RemoteDir, absoluteCommand(m.Command), env.String())
}

// absoluteCommand resolves relative interpreter invocations so systemd can
// exec them without a shell.
func absoluteCommand(cmd string) string {
	if strings.HasPrefix(cmd, "/") {
		return cmd
	}
	return "/usr/bin/env " + cmd
}

// InstallService uploads the process manager for the mission. In systemd
// mode that is a unit file plus daemon-reload; in nohup mode it is a
// launcher script that records the solver PID for later shutdown.
func InstallService(ctx context.Context, sess remote.Session, cfg *hostconfig.HostConfig, m *manifest.Mission) error {
	switch m.ServiceMode() {
	case manifest.ServiceSystemd:
		unit := RenderUnit(cfg, m)
		path := "/etc/systemd/system/" + UnitName(m)
		if err := sess.Upload(path, []byte(unit), 0644); err != nil {
			return fmt.Errorf("install unit: %w", err)
		}
		if _, err := sess.Run(ctx, "systemctl daemon-reload"); err != nil {
			return fmt.Errorf("daemon-reload: %w", err)
		}
		return nil

	case manifest.ServiceNohup:
		script := RenderLauncher(cfg, m)
		if err := sess.Upload(cfg.RemoteDir+"/run_solver.sh", []byte(script), 0755); err != nil {
			return fmt.Errorf("install launcher: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown service mode %q", m.ServiceMode())
	}
}

// RenderLauncher produces the nohup launcher script.
func RenderLauncher(cfg *hostconfig.HostConfig, m *manifest.Mission) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "cd %q || exit 1\n", cfg.RemoteDir)
	for _, k := range sortedKeys(m.Env) {
		fmt.Fprintf(&b, "export %s=%q\n", k, m.Env[k])
	}
	fmt.Fprintf(&b, "nohup %s > logs/solver.log 2>&1 &\n", m.Command)
	b.WriteString("echo $! > solver.pid\n")
	return b.String()
}

// Start launches the solver on the mission host.
func Start(ctx context.Context, sess remote.Session, cfg *hostconfig.HostConfig, m *manifest.Mission) error {
	var cmd string
	switch m.ServiceMode() {
	case manifest.ServiceSystemd:
		cmd = "systemctl restart " + UnitName(m)
	case manifest.ServiceNohup:
		cmd = fmt.Sprintf("sh %q", cfg.RemoteDir+"/run_solver.sh")
	}
	if _, err := sess.Run(ctx, cmd); err != nil {
		return fmt.Errorf("start solver: %w", err)
	}
	return nil
}

// Stop terminates the solver. Best-effort: the solver may have exited on
// its own before the mission window closed.
func Stop(ctx context.Context, sess remote.Session, cfg *hostconfig.HostConfig, m *manifest.Mission) error {
	var cmd string
	switch m.ServiceMode() {
	case manifest.ServiceSystemd:
		cmd = "systemctl stop " + UnitName(m)
	case manifest.ServiceNohup:
		pid := cfg.RemoteDir + "/solver.pid"
		cmd = fmt.Sprintf("test -f %q && kill \"$(cat %q)\" 2>/dev/null; rm -f %q", pid, pid, pid)
	}
	if _, err := sess.Run(ctx, cmd); err != nil {
		return fmt.Errorf("stop solver: %w", err)
	}
	return nil
}

// IsRunning reports whether the solver process is up.
func IsRunning(ctx context.Context, sess remote.Session, cfg *hostconfig.HostConfig, m *manifest.Mission) bool {
	var cmd string
	switch m.ServiceMode() {
	case manifest.ServiceSystemd:
		cmd = "systemctl is-active --quiet " + UnitName(m)
	case manifest.ServiceNohup:
		pid := cfg.RemoteDir + "/solver.pid"
		cmd = fmt.Sprintf("test -f %q && kill -0 \"$(cat %q)\"", pid, pid)
	}
	_, err := sess.Run(ctx, cmd)
	return err == nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
