package manifest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Service launch modes.
const (
	ServiceSystemd = "systemd"
	ServiceNohup   = "nohup"
)

// DefaultRuntime is used when a mission omits runtime:.
const DefaultRuntime = 6 * time.Hour

// Mission is the top-level structure of a hunt.yaml file.
type Mission struct {
	Name string `yaml:"name"`
	Host string `yaml:"host,omitempty"`

	// Payload is the local directory uploaded to the host's remote dir.
	Payload string `yaml:"payload"`
	// Command launches the solver inside the remote dir.
	Command string `yaml:"command"`
	// Service selects how the solver is kept alive: "systemd" or "nohup".
	Service string `yaml:"service,omitempty"`
	// Runtime is the fixed mission window, e.g. "6h" or "90m".
	Runtime string `yaml:"runtime,omitempty"`

	// Artifacts are remote paths (relative to the remote dir) pulled into
	// the local results directory when the mission ends. Entries ending in
	// "/" are directories.
	Artifacts []string `yaml:"artifacts,omitempty"`

	Env map[string]string `yaml:"env,omitempty"`
}

// Parse reads and parses a hunt.yaml file.
func Parse(path string) (*Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", path, err)
	}
	return ParseBytes(data)
}

// ParseBytes parses hunt.yaml from raw bytes.
func ParseBytes(data []byte) (*Mission, error) {
	var m Mission
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that required fields are set and well-formed.
func (m *Mission) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.Payload == "" {
		return fmt.Errorf("manifest %q: payload is required", m.Name)
	}
	if m.Command == "" {
		return fmt.Errorf("manifest %q: command is required", m.Name)
	}
	switch m.Service {
	case "", ServiceSystemd, ServiceNohup:
	default:
		return fmt.Errorf("manifest %q: unknown service mode %q", m.Name, m.Service)
	}
	if m.Runtime != "" {
		if _, err := time.ParseDuration(m.Runtime); err != nil {
			return fmt.Errorf("manifest %q: bad runtime: %w", m.Name, err)
		}
	}
	return nil
}

// ServiceMode returns the effective service mode, defaulting to systemd.
func (m *Mission) ServiceMode() string {
	if m.Service == "" {
		return ServiceSystemd
	}
	return m.Service
}

// RuntimeDuration returns the parsed mission window.
func (m *Mission) RuntimeDuration() time.Duration {
	if m.Runtime == "" {
		return DefaultRuntime
	}
	d, err := time.ParseDuration(m.Runtime)
	if err != nil {
		return DefaultRuntime
	}
	return d
}

// ArtifactList returns the artifacts to retrieve, defaulting to the solver's
// standard output layout.
func (m *Mission) ArtifactList() []string {
	if len(m.Artifacts) > 0 {
		return m.Artifacts
	}
	return []string{"simulation_data/", "provenance_reports/", "simulation_ledger.csv"}
}
