// Package e2e contains end-to-end tests that exercise the full mission
// path — deploy, status polling, shutdown, artifact retrieval — against an
// in-process SSH server with an in-memory filesystem. No real network or
// remote host is required: the "VM" fakes the handful of shell commands the
// CLI issues over SSH.
package e2e_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/primehuntdev/primehunt/internal/artifacts"
	"github.com/primehuntdev/primehunt/internal/deploy"
	"github.com/primehuntdev/primehunt/internal/hostconfig"
	"github.com/primehuntdev/primehunt/internal/manifest"
	"github.com/primehuntdev/primehunt/internal/remote"
	"github.com/primehuntdev/primehunt/internal/status"
)

// solverStatus is what the fake solver writes once started.
const solverStatus = `{"current_gen": 5, "last_sse": 0.02, "last_h_norm": 0.98, "hunt_status": "Evolving"}`

// vm is an in-process SSH server backed by an in-memory filesystem. It
// understands the command shapes the mission CLI issues: mkdir, ls, cat,
// test, tar pipes, and the nohup launcher/stopper.
type vm struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]bool
	started bool
}

func startVM(t *testing.T) (*vm, int) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostKey, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	v := &vm{files: make(map[string][]byte), dirs: make(map[string]bool)}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go v.serveConn(conn, hostKey)
		}
	}()
	return v, listener.Addr().(*net.TCPAddr).Port
}

func (v *vm) serveConn(nc net.Conn, hostKey ssh.Signer) {
	config := &ssh.ServerConfig{NoClientAuth: true}
	config.AddHostKey(hostKey)

	_, chans, reqs, err := ssh.NewServerConn(nc, config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			return
		}
		go v.serveSession(ch, requests)
	}
}

func (v *vm) serveSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}
		cmd := parseExecPayload(req.Payload)
		if req.WantReply {
			_ = req.Reply(true, nil)
		}
		status := v.exec(cmd, ch)
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

// exec interprets one shell command against the in-memory filesystem.
func (v *vm) exec(cmd string, ch ssh.Channel) uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case strings.Contains(cmd, "tar -xz -C "):
		// Payload upload: "mkdir -p <dir> && tar -xz -C <dir>".
		paths := quotedArgs(cmd)
		if len(paths) == 0 {
			return 1
		}
		dir := paths[len(paths)-1]
		v.dirs[dir] = true
		if err := v.untarInto(dir, ch); err != nil {
			return 1
		}
		return 0

	case strings.HasPrefix(cmd, "tar -cz -C "):
		// Artifact download: stream dir contents as a gzipped tar.
		_, _ = io.Copy(io.Discard, ch)
		paths := quotedArgs(cmd)
		if len(paths) == 0 {
			return 1
		}
		return v.tarOut(paths[0], ch)

	case strings.HasPrefix(cmd, "mkdir -p "):
		for _, p := range quotedArgs(cmd) {
			v.dirs[p] = true
		}
		_, _ = io.Copy(io.Discard, ch)
		return 0

	case strings.HasPrefix(cmd, "ls -A "):
		_, _ = io.Copy(io.Discard, ch)
		dir := quotedArgs(cmd)[0]
		if entry := v.firstEntry(dir); entry != "" {
			_, _ = ch.Write([]byte(entry + "\n"))
		}
		return 0

	case strings.HasPrefix(cmd, "cat > "):
		path := quotedArgs(cmd)[0]
		data, _ := io.ReadAll(ch)
		v.files[path] = data
		return 0

	case strings.HasPrefix(cmd, "cat "):
		_, _ = io.Copy(io.Discard, ch)
		path := quotedArgs(cmd)[0]
		data, ok := v.files[path]
		if !ok {
			_, _ = ch.Stderr().Write([]byte("cat: " + path + ": No such file or directory\n"))
			return 1
		}
		_, _ = ch.Write(data)
		return 0

	case strings.HasPrefix(cmd, "sh ") && strings.Contains(cmd, "run_solver.sh"):
		_, _ = io.Copy(io.Discard, ch)
		launcher := quotedArgs(cmd)[0]
		if _, ok := v.files[launcher]; !ok {
			return 127
		}
		// The fake solver comes up immediately and reports progress.
		v.started = true
		dir := filepath.Dir(launcher)
		v.files[dir+"/hunt_status.json"] = []byte(solverStatus)
		return 0

	case strings.Contains(cmd, "solver.pid") && strings.Contains(cmd, "kill"):
		_, _ = io.Copy(io.Discard, ch)
		v.started = false
		return 0

	case strings.HasPrefix(cmd, "test -e "), strings.HasPrefix(cmd, "test -f "):
		_, _ = io.Copy(io.Discard, ch)
		path := quotedArgs(cmd)[0]
		if _, ok := v.files[path]; ok {
			return 0
		}
		if v.dirs[path] {
			return 0
		}
		return 1

	default:
		_, _ = io.Copy(io.Discard, ch)
		_, _ = ch.Stderr().Write([]byte("vm: unknown command: " + cmd + "\n"))
		return 127
	}
}

// untarInto decodes a gzipped tar stream into the filesystem under dir.
func (v *vm) untarInto(dir string, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(hdr.Name, "./")
		if name == "" || hdr.Typeflag == tar.TypeDir {
			v.dirs[dir+"/"+strings.TrimSuffix(name, "/")] = true
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		v.files[dir+"/"+name] = data
	}
}

// tarOut writes every file under dir as a gzipped tar stream.
func (v *vm) tarOut(dir string, w io.Writer) uint32 {
	var names []string
	for path := range v.files {
		if strings.HasPrefix(path, dir+"/") {
			names = append(names, path)
		}
	}
	if len(names) == 0 && !v.dirs[dir] {
		return 1
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, path := range names {
		data := v.files[path]
		hdr := &tar.Header{
			Name: "./" + strings.TrimPrefix(path, dir+"/"),
			Mode: 0644,
			Size: int64(len(data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return 1
		}
		if _, err := tw.Write(data); err != nil {
			return 1
		}
	}
	if err := tw.Close(); err != nil {
		return 1
	}
	if err := gz.Close(); err != nil {
		return 1
	}
	_, _ = w.Write(buf.Bytes())
	return 0
}

func (v *vm) isStarted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.started
}

func (v *vm) seedFile(path string, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.files[path] = data
}

func (v *vm) firstEntry(dir string) string {
	var entries []string
	for path := range v.files {
		if strings.HasPrefix(path, dir+"/") {
			entries = append(entries, strings.TrimPrefix(path, dir+"/"))
		}
	}
	if len(entries) == 0 {
		return ""
	}
	sort.Strings(entries)
	return entries[0]
}

// quotedArgs returns every double-quoted token in cmd, in order.
func quotedArgs(cmd string) []string {
	var args []string
	for {
		start := strings.IndexByte(cmd, '"')
		if start < 0 {
			return args
		}
		end := strings.IndexByte(cmd[start+1:], '"')
		if end < 0 {
			return args
		}
		args = append(args, cmd[start+1:start+1+end])
		cmd = cmd[start+1+end+1:]
	}
}

func parseExecPayload(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	length := int(payload[0])<<24 | int(payload[1])<<16 | int(payload[2])<<8 | int(payload[3])
	if len(payload) < 4+length {
		return ""
	}
	return string(payload[4 : 4+length])
}

func writeClientKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	keyFile := filepath.Join(t.TempDir(), "id_ed25519")
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(keyFile, pemData, 0600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	return keyFile
}

// TestMissionLifecycle walks one full mission: deploy the payload, start
// the solver, read its status, stop it, and pull the artifacts back.
func TestMissionLifecycle(t *testing.T) {
	v, port := startVM(t)

	t.Setenv("SSH_AUTH_SOCK", "")
	cfg := &hostconfig.HostConfig{
		Name:       "e2e",
		SSHHost:    "127.0.0.1",
		SSHPort:    port,
		SSHUser:    "hunter",
		SSHKeyPath: writeClientKey(t),
	}
	cfg.ApplyDefaults()

	payloadDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(payloadDir, "spectral_hunt.py"), []byte("print('hunt')\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m := &manifest.Mission{
		Name:    "e2e",
		Payload: payloadDir,
		Command: "python3 -u spectral_hunt.py",
		Service: manifest.ServiceNohup,
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("manifest: %v", err)
	}

	ctx := context.Background()
	sess, hostKey, err := remote.ConnectTOFU(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = sess.Close() }()
	if hostKey == "" {
		t.Fatal("no host key captured")
	}

	// Deploy sequence.
	if err := deploy.EnsureLayout(ctx, sess, cfg.RemoteDir); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if deploy.HasExistingDeployment(ctx, sess, cfg.RemoteDir) {
		t.Fatal("fresh VM reported an existing deployment")
	}
	if err := deploy.UploadPayload(sess, m, cfg.RemoteDir); err != nil {
		t.Fatalf("upload payload: %v", err)
	}
	if !deploy.HasExistingDeployment(ctx, sess, cfg.RemoteDir) {
		t.Fatal("uploaded payload not detected")
	}
	if err := deploy.InstallService(ctx, sess, cfg, m); err != nil {
		t.Fatalf("install service: %v", err)
	}
	if err := deploy.Verify(ctx, sess, cfg, m); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := deploy.Start(ctx, sess, cfg, m); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !v.isStarted() {
		t.Fatal("solver did not start")
	}

	// The solver is up: the status file must parse into live data.
	f := &status.Fetcher{Runner: sess, Path: cfg.StatusPath()}
	s := f.Fetch(ctx)
	if s.IsSentinel() {
		t.Fatal("status fetch returned the sentinel for a running solver")
	}
	if s.Generation != "5" || s.LastSSE != "0.02" || s.LastHNorm != "0.98" || s.Phase != "Evolving" {
		t.Fatalf("unexpected status: %+v", s)
	}

	// Seed solver output, then run the shutdown and retrieval sequence.
	v.seedFile(cfg.RemoteDir+"/simulation_data/gen_0005.json", []byte(`{"gen": 5}`))
	v.seedFile(cfg.RemoteDir+"/simulation_ledger.csv", []byte("gen,sse\n5,0.02\n"))

	if err := deploy.Stop(ctx, sess, cfg, m); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if v.isStarted() {
		t.Fatal("solver still running after stop")
	}

	r := &artifacts.Retriever{Session: sess, RemoteDir: cfg.RemoteDir, BaseDir: t.TempDir()}
	dir, err := r.Pull([]string{"simulation_data/", "simulation_ledger.csv"})
	if err != nil {
		t.Fatalf("pull artifacts: %v", err)
	}

	ledger, err := os.ReadFile(filepath.Join(dir, "simulation_ledger.csv"))
	if err != nil {
		t.Fatalf("ledger missing from results dir: %v", err)
	}
	if !strings.Contains(string(ledger), "5,0.02") {
		t.Fatalf("ledger content = %q", ledger)
	}
	if _, err := os.Stat(filepath.Join(dir, "simulation_data", "gen_0005.json")); err != nil {
		t.Fatalf("simulation data missing from results dir: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(dir), "hunt_results_") {
		t.Fatalf("results dir %q lacks timestamped prefix", dir)
	}
}
