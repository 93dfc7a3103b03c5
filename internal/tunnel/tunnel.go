// Package tunnel maintains the local TCP listener that exposes the solver's
// web UI. Connections accepted locally are proxied to the remote port over
// the mission session.
package tunnel

import (
	"fmt"
	"io"
	"net"
	"sync"
)

// Dialer opens TCP connections from the remote side. Satisfied by
// remote.Session.
type Dialer interface {
	Dial(network, addr string) (net.Conn, error)
}

// State of a tunnel handle.
type State int

const (
	StateAbsent State = iota
	StateStarting
	StateRunning
	StateDead
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handle is one live local-to-remote forward. It is considered running
// while its accept loop is alive; once the loop exits for any reason the
// handle is dead and must be replaced, not reused.
type Handle struct {
	listener   net.Listener
	dialer     Dialer
	remoteAddr string

	done     chan struct{}
	stopOnce sync.Once
}

// Open starts a forward from localAddr to remoteAddr dialed through d.
func Open(localAddr, remoteAddr string, d Dialer) (*Handle, error) {
	ln, err := net.Listen("tcp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", localAddr, err)
	}
	h := &Handle{
		listener:   ln,
		dialer:     d,
		remoteAddr: remoteAddr,
		done:       make(chan struct{}),
	}
	go h.acceptLoop()
	return h, nil
}

// LocalAddr returns the bound local address.
func (h *Handle) LocalAddr() string {
	return h.listener.Addr().String()
}

// Alive reports whether the accept loop is still serving.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Stop closes the listener; the accept loop exits and the handle reads as
// not alive. In-flight proxied connections are left to drain on their own.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() { _ = h.listener.Close() })
}

func (h *Handle) acceptLoop() {
	defer close(h.done)
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			return
		}
		go h.proxyConn(conn)
	}
}

func (h *Handle) proxyConn(local net.Conn) {
	defer func() { _ = local.Close() }()

	remote, err := h.dialer.Dial("tcp", h.remoteAddr)
	if err != nil {
		return
	}
	defer func() { _ = remote.Close() }()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}
