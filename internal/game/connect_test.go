package game

import (
	"context"
	"fmt"
	"testing"
)

func TestConnectWithVersionRejectsMismatch(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.ConnectWithVersion(context.Background(), "10.0.0.1:1", "alice", "0.9")
	if err != ErrVersionMismatch {
		t.Fatalf("ConnectWithVersion with mismatched version = %v, want ErrVersionMismatch", err)
	}
}

func TestConnectWithVersionAllowsEmptyVersion(t *testing.T) {
	s, _ := newTestServer(t)
	sess, err := s.ConnectWithVersion(context.Background(), "10.0.0.1:1", "alice", "")
	if err != nil {
		t.Fatalf("ConnectWithVersion with empty version error: %v", err)
	}
	if sess.State != StateJoinWindow {
		t.Fatalf("session state = %v, want JoinWindow", sess.State)
	}
}

func TestConnectWithVersionAllowsMatchingVersion(t *testing.T) {
	s, _ := newTestServer(t)
	sess, err := s.ConnectWithVersion(context.Background(), "10.0.0.1:1", "alice", s.cfg.Version)
	if err != nil {
		t.Fatalf("ConnectWithVersion with matching version error: %v", err)
	}
	if sess.State != StateJoinWindow {
		t.Fatalf("session state = %v, want JoinWindow", sess.State)
	}
}

func TestConnectRejectsAtHardMaxPlayers(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.MaxPlayers = 1000 // configured above the hard ceiling

	for i := 0; i < hardMaxPlayers; i++ {
		addr := fmt.Sprintf("10.0.%d.%d:1", i/250, i%250+1)
		if _, err := s.Connect(context.Background(), addr, "p"); err != nil {
			t.Fatalf("Connect #%d unexpectedly rejected: %v", i, err)
		}
	}

	if _, err := s.Connect(context.Background(), "10.0.2.1:1", "overflow"); err != ErrServerFull {
		t.Fatalf("Connect at hard ceiling = %v, want ErrServerFull", err)
	}
}

func TestConnectRejectsTooManyFromSameIP(t *testing.T) {
	s, _ := newTestServer(t)
	ip := "10.0.0.5"
	for i := 0; i < s.cfg.MaxConnectionsPerIP; i++ {
		if _, err := s.Connect(context.Background(), ip+":100", "p"); err != nil {
			t.Fatalf("Connect #%d from %s unexpectedly rejected: %v", i, ip, err)
		}
	}
	if _, err := s.Connect(context.Background(), ip+":200", "overflow"); err != ErrTooManyFromIP {
		t.Fatalf("Connect beyond per-IP cap = %v, want ErrTooManyFromIP", err)
	}
}
