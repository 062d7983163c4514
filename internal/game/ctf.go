package game

import (
	"math"
	"math/rand"
	"time"
)

// StartingBlockBudget is what a freshly respawned session's block budget
// resets to.
const StartingBlockBudget = 50

// CTFRules implements pickup, drop, capture, refill and respawn — the one
// game mode spec section 4.3 describes. It holds no session registry of
// its own; the Server passes in the sessions/teams/bases it operates on so
// CTFRules stays a pure set of rule functions, easy to unit test in
// isolation from the rest of the engine.
type CTFRules struct {
	RefillInterval time.Duration
	RespawnTime    time.Duration
}

func DefaultCTFRules() CTFRules {
	return CTFRules{
		RefillInterval: 30 * time.Second,
		RespawnTime:    8 * time.Second,
	}
}

// TryPickup picks up flag for s if s is standing on it, it isn't already
// held, and it isn't s's own team's flag (you cannot "pick up" your own
// flag off its base — only an enemy carrier dropping it creates something
// to retrieve; nothing returns a dropped flag to its base automatically).
// Returns true if the pickup happened.
func (CTFRules) TryPickup(s *Session, flag *Flag) bool {
	if flag.Held() {
		return false
	}
	if flag.Team == s.Team {
		return false
	}
	if !s.Alive() {
		return false
	}
	if distance(s.Pos, flag.Pos) > pickupRadius {
		return false
	}
	flag.CarrierID = s.PlayerID
	return true
}

const pickupRadius = 2.0

// Drop releases the flag carried by s, placing it at floor(x), floor(y) of
// s's position and at groundZ(x, y), the topmost solid voxel of that
// column — the flag never hangs in mid-air after its carrier dies,
// disconnects, or switches teams. The carrier's own z is not used, so a
// carrier standing under an overhang drops the flag on top of it.
func (CTFRules) Drop(s *Session, flag *Flag, groundZ func(x, y int32) int32) {
	if flag.CarrierID != s.PlayerID {
		return
	}
	flag.CarrierID = -1
	x := int32(math.Floor(float64(s.Pos.X)))
	y := int32(math.Floor(float64(s.Pos.Y)))
	z := groundZ(x, y)
	flag.Pos = Position{X: float32(x), Y: float32(y), Z: float32(z)}
}

// TryCapture scores a capture if s is carrying the enemy flag and is
// standing at (or very near) its own team's base. Matches the original's
// capture_flag: it does not require the capturer's own flag to be home.
// If a capture occurred it adds 1 to team.Score and 10 to s.Kills (per spec
// section 4.3) and returns true and the new team score.
func (r CTFRules) TryCapture(s *Session, carried *Flag, ownBase Base, team *Team) (captured bool, newScore int) {
	if carried.CarrierID != s.PlayerID {
		return false, team.Score
	}
	if carried.Team == s.Team {
		return false, team.Score // can't capture your own flag
	}
	if distance(s.Pos, ownBase.Pos) > pickupRadius {
		return false, team.Score
	}

	carried.CarrierID = -1
	carried.Pos = Position{} // placeholder; Server resets it to the enemy base on respawn of the flag
	team.Score++
	s.Kills += 10
	return true, team.Score
}

// Respawn resets a session to full health, full grenades, a fresh block
// budget, and a random position within its team's spawn region at ground
// level. rng is injected so tests can make spawn placement deterministic.
func (CTFRules) Respawn(s *Session, groundZ func(x, y int32) int32, rng *rand.Rand) {
	hp := MaxHP
	s.SetHP(&hp)
	s.Grenades = MaxGrenades
	s.BlockBudget = StartingBlockBudget

	region := s.Team.SpawnRegion()
	x := region.MinX + int32(rng.Intn(int(region.MaxX-region.MinX)))
	y := region.MinY + int32(rng.Intn(int(region.MaxY-region.MinY)))
	z := groundZ(x, y)

	s.Pos = Position{X: float32(x), Y: float32(y), Z: float32(z)}
	s.Orient = Orientation{X: 1, Y: 0, Z: 0}
	s.fallPeakZ = nil
}

// Refill restores a living session to full HP and grenades on the periodic
// refill tick (as opposed to Respawn, which is death-triggered).
func (CTFRules) Refill(s *Session) {
	if !s.Alive() {
		return
	}
	hp := MaxHP
	s.SetHP(&hp)
	s.Grenades = MaxGrenades
}
