package tunnel

// Supervisor owns exactly one Handle across a mission. It is driven from
// the mission loop's single goroutine, so there is no locking: the loop
// checks liveness once per tick and replaces a dead handle with a fresh one
// spawned with identical parameters. There is no backoff and no retry
// limit — a flapping tunnel is respawned forever at the polling cadence.
type Supervisor struct {
	// Spawn creates a new handle with the mission's fixed parameters.
	Spawn func() (*Handle, error)
	// OnRespawn, if set, is called after each successful replacement.
	OnRespawn func()

	handle   *Handle
	respawns int
}

// Start performs the initial spawn.
func (s *Supervisor) Start() error {
	h, err := s.Spawn()
	if err != nil {
		return err
	}
	s.handle = h
	return nil
}

// Ensure checks liveness and replaces a dead handle. It reports whether a
// respawn happened. A spawn failure leaves the supervisor with no handle;
// the next tick tries again. A first spawn that only succeeds here — after
// Start or an earlier Ensure failed — replaces nothing and is not counted
// as a respawn.
func (s *Supervisor) Ensure() (bool, error) {
	if s.handle != nil && s.handle.Alive() {
		return false, nil
	}
	replaced := s.handle != nil
	if replaced {
		s.handle.Stop()
		s.handle = nil
	}
	h, err := s.Spawn()
	if err != nil {
		return false, err
	}
	s.handle = h
	if !replaced {
		return false, nil
	}
	s.respawns++
	if s.OnRespawn != nil {
		s.OnRespawn()
	}
	return true, nil
}

// State reports the current handle state.
func (s *Supervisor) State() State {
	switch {
	case s.handle == nil:
		return StateAbsent
	case s.handle.Alive():
		return StateRunning
	default:
		return StateDead
	}
}

// LocalAddr returns the live handle's bound address, or "" when absent.
func (s *Supervisor) LocalAddr() string {
	if s.handle == nil {
		return ""
	}
	return s.handle.LocalAddr()
}

// Respawns returns how many cold replacements have happened.
func (s *Supervisor) Respawns() int {
	return s.respawns
}

// Stop terminates the current handle, if any.
func (s *Supervisor) Stop() {
	if s.handle != nil {
		s.handle.Stop()
		s.handle = nil
	}
}
