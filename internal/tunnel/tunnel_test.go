package tunnel_test

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/primehuntdev/primehunt/internal/tunnel"
)

// echoDialer serves an in-process "remote" echo endpoint.
type echoDialer struct {
	ln net.Listener
}

func startEchoDialer(t *testing.T) *echoDialer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer func() { _ = c.Close() }()
				_, _ = io.Copy(c, c)
			}(conn)
		}
	}()
	return &echoDialer{ln: ln}
}

func (d *echoDialer) Dial(network, _ string) (net.Conn, error) {
	// The remote address is fixed per mission; dial the echo endpoint
	// regardless of what was requested.
	return net.Dial(network, d.ln.Addr().String())
}

func TestHandleProxiesTraffic(t *testing.T) {
	d := startEchoDialer(t)

	h, err := tunnel.Open("127.0.0.1:0", "127.0.0.1:8080", d)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Stop()

	conn, err := net.Dial("tcp", h.LocalAddr())
	if err != nil {
		t.Fatalf("dial local side: %v", err)
	}
	defer func() { _ = conn.Close() }()

	msg := []byte("GET /status HTTP/1.0\r\n")
	if _, err := conn.Write(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, len(msg))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != string(msg) {
		t.Errorf("echo = %q, want %q", buf, msg)
	}
}

func TestHandleAliveUntilStopped(t *testing.T) {
	d := startEchoDialer(t)
	h, err := tunnel.Open("127.0.0.1:0", "127.0.0.1:8080", d)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !h.Alive() {
		t.Fatal("fresh handle not alive")
	}
	h.Stop()
	waitDead(t, h)
}

func waitDead(t *testing.T, h *tunnel.Handle) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Alive() {
		if time.Now().After(deadline) {
			t.Fatal("handle still alive after Stop")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSupervisorRespawnsDeadHandle(t *testing.T) {
	d := startEchoDialer(t)

	spawns := 0
	var last *tunnel.Handle
	sup := &tunnel.Supervisor{
		Spawn: func() (*tunnel.Handle, error) {
			spawns++
			h, err := tunnel.Open("127.0.0.1:0", "127.0.0.1:8080", d)
			last = h
			return h, err
		},
	}
	defer sup.Stop()

	if err := sup.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if spawns != 1 {
		t.Fatalf("spawns = %d after Start, want 1", spawns)
	}
	if got := sup.State(); got != tunnel.StateRunning {
		t.Fatalf("State = %v, want running", got)
	}

	// Healthy tick: no respawn.
	respawned, err := sup.Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if respawned || spawns != 1 {
		t.Fatalf("healthy tick respawned (spawns=%d)", spawns)
	}

	// Kill the handle out from under the supervisor.
	last.Stop()
	waitDead(t, last)

	// Dead tick: exactly one respawn.
	respawned, err = sup.Ensure()
	if err != nil {
		t.Fatalf("Ensure after death: %v", err)
	}
	if !respawned {
		t.Error("dead handle was not respawned")
	}
	if spawns != 2 {
		t.Errorf("spawns = %d, want 2", spawns)
	}
	if sup.Respawns() != 1 {
		t.Errorf("Respawns = %d, want 1", sup.Respawns())
	}
	if got := sup.State(); got != tunnel.StateRunning {
		t.Errorf("State = %v, want running after respawn", got)
	}
}

func TestSupervisorSpawnFailureRetriesNextTick(t *testing.T) {
	d := startEchoDialer(t)

	fail := true
	notified := 0
	sup := &tunnel.Supervisor{
		Spawn: func() (*tunnel.Handle, error) {
			if fail {
				return nil, errors.New("bind: address already in use")
			}
			return tunnel.Open("127.0.0.1:0", "127.0.0.1:8080", d)
		},
		OnRespawn: func() { notified++ },
	}
	defer sup.Stop()

	if err := sup.Start(); err == nil {
		t.Fatal("Start should fail while spawn fails")
	}
	if got := sup.State(); got != tunnel.StateAbsent {
		t.Fatalf("State = %v, want absent after failed spawn", got)
	}

	if _, err := sup.Ensure(); err == nil {
		t.Fatal("Ensure should surface spawn failure")
	}

	// The first spawn that finally succeeds replaces nothing: it must not
	// count as a respawn or notify.
	fail = false
	respawned, err := sup.Ensure()
	if err != nil {
		t.Fatalf("Ensure after recovery: %v", err)
	}
	if respawned {
		t.Error("late first spawn reported as respawn")
	}
	if sup.Respawns() != 0 {
		t.Errorf("Respawns = %d, want 0 (nothing was replaced)", sup.Respawns())
	}
	if notified != 0 {
		t.Errorf("OnRespawn fired %d times, want 0", notified)
	}
	if got := sup.State(); got != tunnel.StateRunning {
		t.Errorf("State = %v, want running", got)
	}
}

func TestSupervisorStop(t *testing.T) {
	d := startEchoDialer(t)
	sup := &tunnel.Supervisor{
		Spawn: func() (*tunnel.Handle, error) {
			return tunnel.Open("127.0.0.1:0", "127.0.0.1:8080", d)
		},
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := sup.LocalAddr()
	sup.Stop()
	if got := sup.State(); got != tunnel.StateAbsent {
		t.Errorf("State = %v, want absent after Stop", got)
	}
	// The listener must actually be released.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			_ = ln.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("local address %s still bound after Stop", addr)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
