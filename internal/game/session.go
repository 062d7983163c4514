package game

import (
	"fmt"
	"strings"
	"time"

	"voxctf/internal/window"
)

// SessionState is the state of SessionFSM per spec section 4.1: every
// session begins in Handshake, moves to JoinWindow once the client has
// been admitted, becomes InGame once world state has been sent, and
// finally Closed on disconnect. Transitions only move forward; a closed
// session is never reused.
type SessionState uint8

const (
	StateHandshake SessionState = iota
	StateJoinWindow
	StateInGame
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateJoinWindow:
		return "join_window"
	case StateInGame:
		return "in_game"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// vanillaReservedName is never handed out bare — it always receives the
// numeric suffix treatment, mirroring the one hardcoded exception in the
// original name-uniquification logic.
const vanillaReservedName = "deuce"

// Session is one connected player's full server-side state. The HP field
// is a pointer so "no HP" (spectating, or not yet spawned) is distinguishable
// from 0 HP: invariant is HP == nil or 0 <= *HP <= MaxHP.
type Session struct {
	PlayerID int
	Addr     string // opaque transport peer identity
	Name     string
	State    SessionState

	Team TeamID
	HP   *int

	Grenades    int // 0..MaxGrenades
	BlockBudget int // can run negative down to MinBlockBudget as a cooldown debt

	Tool   Tool
	Weapon Weapon
	Color  uint32

	Pos    Position
	Orient Orientation

	// Flags is the last InputData applied — the server's record of walk/
	// crouch/aim/fire stance. It is recorded only; hit resolution and
	// settle() do not read it.
	Flags InputFlags

	// Fly enables the airborne-crouch jump-impulse carve-out in onInput;
	// Deaf suppresses outgoing broadcasts to this session entirely.
	// FilterVisibilityData, SpeedhackDetect and Master mirror the
	// original's per-connection flags (spec section 3); no engine code sets
	// or reads them. None of these are client-settable.
	Fly                  bool
	Deaf                 bool
	FilterVisibilityData bool
	SpeedhackDetect      bool
	Master               bool

	// orientSeq is this session's own 16-bit wraparound counter, advanced
	// once per orientation packet it receives, per spec section 3/4.4.
	orientSeq uint16

	Kills, Deaths int
	JoinedAt      time.Time

	// savedLoaders queues outgoing envelopes raised while still in
	// JoinWindow (other players' state arriving before this session's own
	// map transfer completes). Non-nil iff State == StateJoinWindow,
	// matching the data-model invariant; flushed and nilled on the
	// transition into InGame.
	savedLoaders [][]byte

	// Anti-cheat bookkeeping, consulted by InputValidator.
	speedWindow      *window.Window
	rapidFireWindow  *window.Window // weapon/grenade fire-rate smoothing
	blockRapidWindow *window.Window // BlockAction rapid-fire window, spec section 4.2
	lastInputAt    time.Time
	lastBlockAt    time.Time
	lastGrenadeAt  time.Time
	lastRefillAt   time.Time

	// fallPeakZ is the smallest (highest-altitude) Z seen since s last left
	// the ground, nil while grounded. Consulted by applyFallDamage.
	fallPeakZ *float32

	// respawnTimer is the single pending deferred respawn call for this
	// session, per spec section 5 — killSession arms it, and any path that
	// makes the pending respawn stale (resetGame, Disconnect) stops it
	// before it can fire a second time.
	respawnTimer *time.Timer
}

// nextOrientSeq returns the next value of s's own orientation sequence
// counter — each session counts orientation packets it has received,
// independent of who sent them — wrapping at 2^16 per spec section 3.
func (s *Session) nextOrientSeq() uint16 {
	v := s.orientSeq
	s.orientSeq++
	return v
}

// cancelRespawn stops any pending deferred respawn for s, if one is armed.
func (s *Session) cancelRespawn() {
	if s.respawnTimer != nil {
		s.respawnTimer.Stop()
		s.respawnTimer = nil
	}
}

// MinBlockBudget is the floor BlockBudget is clamped to — spec section 3
// allows it to go negative as a standing cooldown debt, but not unbounded.
const MinBlockBudget = -5

// NewSession constructs a session in StateHandshake. It does not allocate
// a player-id or register the session anywhere; the Server does that once
// the handshake is accepted.
func NewSession(addr string) *Session {
	return &Session{
		Addr:            addr,
		State:           StateHandshake,
		Team:            TeamA,
		Grenades:        MaxGrenades,
		speedWindow:      window.New(8),
		rapidFireWindow:  window.New(6),
		blockRapidWindow: window.New(6),
	}
}

// EnterJoinWindow transitions Handshake -> JoinWindow, allocating the
// saved-loader queue.
func (s *Session) EnterJoinWindow() {
	s.State = StateJoinWindow
	s.savedLoaders = make([][]byte, 0, 16)
}

// QueueLoader appends an outgoing envelope to the saved-loader queue. It is
// a programmer error to call this outside JoinWindow.
func (s *Session) QueueLoader(b []byte) {
	if s.State != StateJoinWindow {
		panic("session: QueueLoader outside JoinWindow")
	}
	s.savedLoaders = append(s.savedLoaders, b)
}

// EnterGame transitions JoinWindow -> InGame, returning (and clearing) the
// queued loaders so the caller can flush them to the transport in order.
func (s *Session) EnterGame() [][]byte {
	queued := s.savedLoaders
	s.savedLoaders = nil
	s.State = StateInGame
	return queued
}

// Close transitions to Closed from any prior state.
func (s *Session) Close() {
	s.State = StateClosed
}

// SetHP sets HP, clamping to [0, MaxHP]. Passing a nil value clears it
// (spectator / not-yet-spawned).
func (s *Session) SetHP(hp *int) {
	if hp == nil {
		s.HP = nil
		return
	}
	v := *hp
	if v < 0 {
		v = 0
	}
	if v > MaxHP {
		v = MaxHP
	}
	s.HP = &v
}

// Alive reports whether the session currently has HP assigned and positive.
func (s *Session) Alive() bool {
	return s.HP != nil && *s.HP > 0
}

// AdjustBlockBudget applies delta, clamping to [MinBlockBudget, +inf).
func (s *Session) AdjustBlockBudget(delta int) {
	s.BlockBudget += delta
	if s.BlockBudget < MinBlockBudget {
		s.BlockBudget = MinBlockBudget
	}
}

// uniqueName resolves name collisions the way the original get_name loop
// does: case-insensitive comparison against every other connected name,
// appending the least integer suffix >=1 that makes it unique. The vanilla
// client's default name always gains playerID as its suffix, even the
// first time it is seen, rather than competing for the bare name.
func uniqueName(requested string, playerID int, taken func(lower string) bool) string {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = "Player"
	}
	lower := strings.ToLower(base)

	if lower == vanillaReservedName {
		return fmt.Sprintf("%s%d", base, playerID)
	}

	if !taken(lower) {
		return base
	}

	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s%d", base, n)
		if !taken(strings.ToLower(candidate)) {
			return candidate
		}
	}
}
