// Package status fetches the solver's status file from the mission host and
// maps it onto the dashboard's display fields. A mission host that is
// unreachable, still booting, or writing garbage never produces an error
// here — only the sentinel "Connecting..." status.
package status

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Display sentinels.
const (
	Unknown         = "--"
	PhaseConnecting = "Connecting..."
)

// Remote status file keys written by the solver.
const (
	keyGeneration = "current_gen"
	keySSE        = "last_sse"
	keyHNorm      = "last_h_norm"
	keyPhase      = "hunt_status"
)

// RemoteStatus is the snapshot rendered by the dashboard. All fields are
// opaque display strings; nothing is validated beyond presence.
type RemoteStatus struct {
	Generation string
	LastSSE    string
	LastHNorm  string
	Phase      string
}

// Sentinel returns the placeholder status shown while the host is
// unreachable or the solver has not written a status file yet.
func Sentinel() RemoteStatus {
	return RemoteStatus{
		Generation: Unknown,
		LastSSE:    Unknown,
		LastHNorm:  Unknown,
		Phase:      PhaseConnecting,
	}
}

// IsSentinel reports whether s carries no live data.
func (s RemoteStatus) IsSentinel() bool {
	return s == Sentinel()
}

// Parse decodes a status file body. Any decode failure is equivalent to the
// file being absent: the sentinel is returned with ok=false. A valid object
// with missing keys parses fine — each absent field keeps its unknown value.
func Parse(data []byte) (RemoteStatus, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Sentinel(), false
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Sentinel(), false
	}

	s := Sentinel()
	if v, ok := raw[keyGeneration]; ok {
		s.Generation = display(v)
	}
	if v, ok := raw[keySSE]; ok {
		s.LastSSE = display(v)
	}
	if v, ok := raw[keyHNorm]; ok {
		s.LastHNorm = display(v)
	}
	if v, ok := raw[keyPhase]; ok {
		s.Phase = display(v)
	}
	return s, true
}

// display renders a decoded JSON scalar as the dashboard shows it.
// json.Number keeps the literal as written in the file, so 0.02 stays
// "0.02" rather than becoming a float64 rendering.
func display(v any) string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return Unknown
		}
		return x
	case json.Number:
		return x.String()
	case nil:
		return Unknown
	default:
		return fmt.Sprint(x)
	}
}
