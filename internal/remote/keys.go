package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/term"
)

// LoadSigners loads SSH private key signers. It tries the SSH agent first
// (via $SSH_AUTH_SOCK), then falls back to key files. If a key file is
// passphrase-protected, the user is prompted on stderr.
func LoadSigners(keyPath string) ([]ssh.Signer, error) {
	var signers []ssh.Signer

	// Try the SSH agent first — works transparently when the key is already loaded.
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			agentSigners, err := agent.NewClient(conn).Signers()
			if err == nil {
				signers = append(signers, agentSigners...)
			}
		}
	}

	// Collect key file paths to try.
	paths := []string{keyPath}
	if keyPath == "" {
		home, _ := os.UserHomeDir()
		paths = []string{
			home + "/.ssh/id_ed25519",
			home + "/.ssh/id_rsa",
			home + "/.ssh/id_ecdsa",
		}
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read key %q: %w", p, err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			var passErr *ssh.PassphraseMissingError
			if !errors.As(err, &passErr) {
				return nil, fmt.Errorf("parse key %q: %w", p, err)
			}
			fmt.Fprintf(os.Stderr, "Enter passphrase for %s: ", p)
			passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return nil, fmt.Errorf("read passphrase: %w", err)
			}
			signer, err = ssh.ParsePrivateKeyWithPassphrase(data, passphrase)
			if err != nil {
				return nil, fmt.Errorf("parse key %q: %w", p, err)
			}
		}
		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil, fmt.Errorf("no SSH private keys found")
	}
	return signers, nil
}

// MarshalHostKey serialises an SSH public key to authorized_keys format.
// Returns empty string if key is nil.
func MarshalHostKey(key ssh.PublicKey) string {
	if key == nil {
		return ""
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
}

// HostKeyCallbackFor returns a HostKeyCallback that enforces the saved key.
// If savedKey is empty (no prior connection recorded), it returns an error
// so callers are explicit about whether they want TOFU or enforcement.
func HostKeyCallbackFor(savedKey string) (ssh.HostKeyCallback, error) {
	if savedKey == "" {
		return nil, fmt.Errorf("no SSH host key on record; run 'hunt deploy' to bootstrap")
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(savedKey))
	if err != nil {
		return nil, fmt.Errorf("parse saved host key: %w", err)
	}
	return ssh.FixedHostKey(pub), nil
}
