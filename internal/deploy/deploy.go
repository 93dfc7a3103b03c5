// Package deploy pushes the solver payload to a mission host and installs
// the process manager that keeps it running.
package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/primehuntdev/primehunt/internal/hostconfig"
	"github.com/primehuntdev/primehunt/internal/manifest"
	"github.com/primehuntdev/primehunt/internal/remote"
)

// layoutDirs are created under the remote dir on every deploy. The solver
// expects them to exist before it starts.
var layoutDirs = []string{
	"input_configs",
	"simulation_data",
	"provenance_reports",
	"logs",
}

// EnsureLayout creates the remote directory skeleton.
func EnsureLayout(ctx context.Context, sess remote.Session, remoteDir string) error {
	var paths []string
	for _, d := range layoutDirs {
		paths = append(paths, fmt.Sprintf("%q", remoteDir+"/"+d))
	}
	if _, err := sess.Run(ctx, "mkdir -p "+strings.Join(paths, " ")); err != nil {
		return fmt.Errorf("create remote layout: %w", err)
	}
	return nil
}

// HasExistingDeployment reports whether the remote dir already contains an
// uploaded payload.
func HasExistingDeployment(ctx context.Context, sess remote.Session, remoteDir string) bool {
	out, err := sess.Run(ctx, fmt.Sprintf("ls -A %q 2>/dev/null | head -1", remoteDir))
	return err == nil && strings.TrimSpace(out) != ""
}

// UploadPayload streams the mission's payload directory into the remote dir.
func UploadPayload(sess remote.Session, m *manifest.Mission, remoteDir string) error {
	if err := sess.UploadTree(m.Payload, remoteDir); err != nil {
		return fmt.Errorf("upload payload: %w", err)
	}
	return nil
}

// ApplySysctlTuning applies the kernel network forwarding tuning some VM
// images need for a stable tunnel. Only invoked when the host config opts
// in; failures are the caller's to downgrade to a warning.
func ApplySysctlTuning(ctx context.Context, sess remote.Session) error {
	cmds := []string{
		"sysctl -w net.core.rmem_max=26214400",
		"sysctl -w net.core.wmem_max=26214400",
		"sysctl -w net.ipv4.ip_forward=1",
	}
	if _, err := sess.Run(ctx, strings.Join(cmds, " && ")); err != nil {
		return fmt.Errorf("sysctl tuning: %w", err)
	}
	return nil
}

// Verify checks the deployed payload is where the launcher expects it.
func Verify(ctx context.Context, sess remote.Session, cfg *hostconfig.HostConfig, m *manifest.Mission) error {
	entry := entrypointFile(m.Command)
	if entry == "" {
		return nil
	}
	if _, err := sess.Run(ctx, fmt.Sprintf("test -e %q", cfg.RemoteDir+"/"+entry)); err != nil {
		return fmt.Errorf("payload entrypoint %q not found under %s: %w", entry, cfg.RemoteDir, err)
	}
	return nil
}

// entrypointFile extracts the script/file argument from a launch command,
// e.g. "python3 app.py --headless" → "app.py". Returns "" when the command
// has no obvious file argument.
func entrypointFile(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	// A path-style first field is the entrypoint itself; otherwise it is
	// the interpreter and the entrypoint follows.
	cand := fields
	if !strings.ContainsRune(fields[0], '/') {
		cand = fields[1:]
	}
	for _, f := range cand {
		if strings.HasPrefix(f, "-") {
			continue
		}
		if strings.ContainsRune(f, '.') || strings.ContainsRune(f, '/') {
			return f
		}
	}
	return ""
}
