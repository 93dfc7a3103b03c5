// Package remote provides the authenticated channel used for every
// interaction with the mission host: command execution, file transfer, and
// TCP dialing for the web UI tunnel. The rest of the repo depends on the
// Session interface, not on SSH.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/primehuntdev/primehunt/internal/hostconfig"
)

// Session is an authenticated channel to the mission host.
type Session interface {
	// Run executes a command and returns its combined output. Cancelling
	// ctx tears down the exec channel and unblocks the call.
	Run(ctx context.Context, cmd string) (string, error)
	// Upload writes data to a remote file with the given mode.
	Upload(remotePath string, data []byte, mode os.FileMode) error
	// UploadTree uploads a local directory tree under remoteDir.
	UploadTree(localDir, remoteDir string) error
	// Download returns the contents of a remote file.
	Download(remotePath string) ([]byte, error)
	// DownloadTree copies a remote directory tree into localDir.
	DownloadTree(remoteDir, localDir string) error
	// Dial opens a TCP connection from the remote host.
	Dial(network, addr string) (net.Conn, error)
	Close() error
}

// sshSession implements Session over an ssh.Client.
type sshSession struct {
	client *ssh.Client
}

// Connect establishes a Session to a known host, verifying its host key
// against the fingerprint captured during deploy.
func Connect(ctx context.Context, cfg *hostconfig.HostConfig) (Session, error) {
	callback, err := HostKeyCallbackFor(cfg.SSHHostKey)
	if err != nil {
		return nil, fmt.Errorf("load saved host key: %w", err)
	}
	client, err := dial(ctx, cfg, callback)
	if err != nil {
		return nil, err
	}
	return &sshSession{client: client}, nil
}

// ConnectTOFU establishes a first Session to an unknown host, capturing its
// host key. The captured key (authorized_keys format) is returned so the
// caller can persist it for later enforcement.
func ConnectTOFU(ctx context.Context, cfg *hostconfig.HostConfig) (Session, string, error) {
	var captured ssh.PublicKey
	callback := func(_ string, _ net.Addr, key ssh.PublicKey) error {
		captured = key
		return nil
	}
	client, err := dial(ctx, cfg, callback)
	if err != nil {
		return nil, "", err
	}
	return &sshSession{client: client}, MarshalHostKey(captured), nil
}

// dial connects with key-based auth, retrying the initial dial a few times
// so a freshly provisioned VM that is still booting does not fail the deploy.
func dial(ctx context.Context, cfg *hostconfig.HostConfig, hostKeyCallback ssh.HostKeyCallback) (*ssh.Client, error) {
	signers, err := LoadSigners(cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load SSH keys: %w", err)
	}

	config := &ssh.ClientConfig{
		User:            cfg.SSHUser,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signers...)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}

	addr := net.JoinHostPort(cfg.SSHHost, strconv.Itoa(cfg.SSHPort))

	var dialErr error
	dialer := &net.Dialer{}
	for i := 0; i < 3; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
		netConn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			dialErr = err
			continue
		}
		sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
		if err != nil {
			netConn.Close()
			dialErr = err
			continue
		}
		return ssh.NewClient(sshConn, chans, reqs), nil
	}
	return nil, dialErr
}

// Run executes a command on the remote host and returns combined output.
// Each call opens and closes its own exec channel. A stalled remote exec
// is torn down when ctx expires instead of wedging the caller.
func (s *sshSession) Run(ctx context.Context, cmd string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", err
	}
	defer sess.Close()

	var buf bytes.Buffer
	sess.Stdout = &buf
	sess.Stderr = &buf

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		// Closing the exec channel unblocks the goroutine.
		_ = sess.Close()
		<-done
		return "", fmt.Errorf("remote %q: %w", cmd, ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("remote %q: %w (output: %s)", cmd, err, buf.String())
		}
		return buf.String(), nil
	}
}

// Dial opens a TCP connection from the remote side. The tunnel uses this to
// reach the solver's web UI on its loopback interface.
func (s *sshSession) Dial(network, addr string) (net.Conn, error) {
	return s.client.Dial(network, addr)
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
