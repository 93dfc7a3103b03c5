package hostconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a host config omits the corresponding field.
const (
	DefaultSSHPort    = 22
	DefaultRemoteDir  = "/opt/primehunt"
	DefaultWebPort    = 8080
	DefaultLocalPort  = 8080
	DefaultStatusFile = "hunt_status.json"
)

// HostConfig holds all connection parameters for a remote mission host.
// Stored at ~/.config/primehunt/hosts/<name>.yaml.
type HostConfig struct {
	Name    string `yaml:"name"`
	SSHHost string `yaml:"ssh_host"`
	SSHPort int    `yaml:"ssh_port"`
	SSHUser string `yaml:"ssh_user"`
	// SSHKeyPath is the private key file used to authenticate. Empty means
	// try the SSH agent and the usual ~/.ssh key files.
	SSHKeyPath string `yaml:"ssh_key_path,omitempty"`
	// SSHHostKey is the server's host key in authorized_keys format,
	// captured on first deploy and verified on every later connection.
	SSHHostKey string `yaml:"ssh_host_key,omitempty"`

	// RemoteDir is the deployment root on the host. The solver writes its
	// status file and artifact directories under it.
	RemoteDir  string `yaml:"remote_dir"`
	StatusFile string `yaml:"status_file,omitempty"` // relative to RemoteDir

	// WebPort is the solver's web UI port on the remote host; LocalPort is
	// where the tunnel exposes it locally. Both are configuration — the two
	// legacy deploy scripts disagreed on the local side.
	WebPort   int `yaml:"web_port,omitempty"`
	LocalPort int `yaml:"local_port,omitempty"`

	// SysctlTuning applies kernel network forwarding tuning during deploy.
	SysctlTuning bool `yaml:"sysctl_tuning,omitempty"`
}

// ApplyDefaults fills zero-valued fields with package defaults.
func (c *HostConfig) ApplyDefaults() {
	if c.SSHPort == 0 {
		c.SSHPort = DefaultSSHPort
	}
	if c.SSHUser == "" {
		c.SSHUser = "root"
	}
	if c.RemoteDir == "" {
		c.RemoteDir = DefaultRemoteDir
	}
	if c.StatusFile == "" {
		c.StatusFile = DefaultStatusFile
	}
	if c.WebPort == 0 {
		c.WebPort = DefaultWebPort
	}
	if c.LocalPort == 0 {
		c.LocalPort = DefaultLocalPort
	}
}

// StatusPath returns the absolute remote path of the status file.
func (c *HostConfig) StatusPath() string {
	if strings.HasPrefix(c.StatusFile, "/") {
		return c.StatusFile
	}
	return c.RemoteDir + "/" + c.StatusFile
}

// Addr returns the SSH dial address ("host:port").
func (c *HostConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.SSHHost, c.SSHPort)
}

// ConfigDir returns the directory where host configs are stored.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "primehunt", "hosts"), nil
}

// Save writes the config to ~/.config/primehunt/hosts/<name>.yaml.
func (c *HostConfig) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(dir, c.Name+".yaml")
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Load reads a host config by name and applies defaults.
func Load(name string) (*HostConfig, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host config %q: %w", name, err)
	}
	var cfg HostConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse host config %q: %w", name, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// List returns the names of all saved host configs.
func List() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list host configs: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	return names, nil
}

// Delete removes a host config by name.
func Delete(name string) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name+".yaml")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete host config %q: %w", name, err)
	}
	return nil
}
