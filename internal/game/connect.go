package game

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"voxctf/internal/eventlog"
	"voxctf/internal/protocol"
)

// Handshake rejection reasons, spec section 4.1.
var (
	ErrServerFull      = errors.New("game: server full")
	ErrTooManyFromIP   = errors.New("game: too many connections from this address")
	ErrRejectedByHook  = errors.New("game: join rejected by extension")
	ErrVersionMismatch = errors.New("game: client protocol version mismatch")
)

// hardMaxPlayers is the engine-wide ceiling on live connections regardless
// of configuration, per spec section 4.1: "current live connections >=
// min(32, max_players)".
const hardMaxPlayers = 32

func ipOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// Connect runs the CONNECTIONLESS-triggered session creation spec section
// 4.6 describes, assuming the joining client's protocol version already
// matches (no version to check). Most callers should prefer
// ConnectWithVersion; this remains for collaborators that never carry a
// version field.
func (s *Server) Connect(ctx context.Context, addr, requestedName string) (*Session, error) {
	return s.ConnectWithVersion(ctx, addr, requestedName, s.cfg.Version)
}

// ConnectWithVersion runs the CONNECTIONLESS-triggered session creation
// spec section 4.6 describes: Transport calls this once for a new peer
// address. It enforces the handshake rejection rules (protocol version
// mismatch, server full, per-IP connection cap, extension veto) before
// admitting the session into JoinWindow and kicking off its map transfer.
func (s *Server) ConnectWithVersion(ctx context.Context, addr, requestedName, clientVersion string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clientVersion != "" && clientVersion != s.cfg.Version {
		return nil, ErrVersionMismatch
	}

	maxPlayers := s.cfg.MaxPlayers
	if maxPlayers > hardMaxPlayers {
		maxPlayers = hardMaxPlayers
	}
	if s.sessions.Len() >= maxPlayers {
		return nil, ErrServerFull
	}

	ip := ipOf(addr)
	if s.connsByIP[ip] >= s.cfg.MaxConnectionsPerIP {
		return nil, ErrTooManyFromIP
	}

	sess := NewSession(addr)
	sess.PlayerID = s.ids.Get()
	sess.Name = uniqueName(requestedName, sess.PlayerID, func(lower string) bool {
		_, ok := s.sessions.ByName(lower)
		return ok
	})
	sess.Team = s.smallestTeam()
	sess.JoinedAt = time.Now()

	if decision := s.ext.OnPlayerJoin(sess); decision.Kind == Deny {
		s.ids.Put(sess.PlayerID)
		return nil, ErrRejectedByHook
	}

	sess.EnterJoinWindow()

	// Per spec section 4.1's JoinWindow guarantee, the joiner must see a
	// superset of existing world state before its own CreatePlayer: queue
	// an ExistingPlayer for every already-seated session, then the current
	// CTF/team StateData, directly onto this session's own saved queue —
	// these are never broadcast to anyone else.
	for _, name := range s.sessions.Names() {
		if other, ok := s.sessions.ByName(name); ok && other.State == StateInGame {
			sess.QueueLoader(EncodeExistingPlayer(other))
		}
	}
	sess.QueueLoader(EncodeStateData(s))

	s.sessions.Put(sess.PlayerID, strings.ToLower(sess.Name), sess)
	s.connsByIP[ip]++
	s.teams[sess.Team].Players[sess.PlayerID] = sess

	handle := s.world.CreateCharacter(Position{})
	s.handles[sess.PlayerID] = handle

	s.ctf.Respawn(sess, s.groundZ, s.rng)

	// Broadcasting CreatePlayer to everyone (sender=nil, no skip) both
	// announces the new player to already-InGame sessions immediately and
	// lands in this still-JoinWindow session's own queue last, exactly the
	// ExistingPlayer/StateData/CreatePlayer(self) ordering spec's join
	// scenario requires.
	env := EncodeCreatePlayer(protocol.CreatePlayer{
		PlayerID: sess.PlayerID,
		Name:     sess.Name,
		Team:     int8(sess.Team),
		Weapon:   sess.Weapon,
		Pos:      sess.Pos,
	})
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)

	if s.events != nil {
		s.events.Emit(eventlog.KindJoin, strconv.Itoa(sess.PlayerID), sess.Name)
	}

	mapData := SerializeMap(s.vmap, [3]int32{0, 0, 0}, [3]int32{512, 512, 64})
	s.beginMapTransfer(ctx, sess, mapData)

	if s.master != nil {
		s.master.SetCount(s.sessions.Len())
	}

	return sess, nil
}

// Disconnect removes a session entirely: drops any carried flag, frees its
// world handle and player-id, and notifies the extension.
func (s *Server) Disconnect(ctx context.Context, playerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.ByID(playerID)
	if !ok {
		return
	}

	for _, flag := range s.flags {
		if flag.CarrierID == playerID {
			s.ctf.Drop(sess, flag, s.groundZ)
			dropEnv := EncodeIntelDrop(playerID, flag.Team, flag.Pos)
			s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, dropEnv)
			s.ext.OnFlagDrop(sess, flag)
		}
	}

	if h, ok := s.handles[playerID]; ok {
		s.world.Destroy(h)
		delete(s.handles, playerID)
	}
	delete(s.transfers, playerID)
	delete(s.teams[sess.Team].Players, playerID)
	s.sessions.Delete(playerID, strings.ToLower(sess.Name))
	s.ids.Put(playerID)
	s.leaderboard.Remove(playerID)

	ip := ipOf(sess.Addr)
	if s.connsByIP[ip] > 0 {
		s.connsByIP[ip]--
	}

	sess.cancelRespawn()
	sess.Close()
	s.ext.OnPlayerLeave(sess)

	if s.events != nil {
		s.events.Emit(eventlog.KindLeave, strconv.Itoa(playerID), sess.Name)
	}
	if s.master != nil {
		s.master.SetCount(s.sessions.Len())
	}

	env := EncodePlayerLeft(playerID)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, sess, KindGeneral, env)
}

// smallestTeam returns whichever team currently has fewer players, the
// simplest fair auto-balance rule, ties favoring TeamA.
func (s *Server) smallestTeam() TeamID {
	if len(s.teams[TeamB].Players) < len(s.teams[TeamA].Players) {
		return TeamB
	}
	return TeamA
}

func (s *Server) groundZ(x, y int32) int32 {
	return s.vmap.GetZ(x, y)
}

// sessionsSnapshotLocked returns the id->session map for broadcast
// iteration. Caller must hold s.mu.
func (s *Server) sessionsSnapshotLocked() map[int]*Session {
	out := make(map[int]*Session, s.sessions.Len())
	for _, name := range s.sessions.Names() {
		if sess, ok := s.sessions.ByName(name); ok {
			out[sess.PlayerID] = sess
		}
	}
	return out
}

