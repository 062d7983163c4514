package game

import (
	"math/rand"
	"testing"
)

func aliveSession(id int, team TeamID, pos Position) *Session {
	s := NewSession("peer")
	s.PlayerID = id
	s.Team = team
	s.Pos = pos
	hp := MaxHP
	s.SetHP(&hp)
	return s
}

func flatGroundZ(x, y int32) int32 { return 0 }

func TestTryPickupEnemyFlagOnGround(t *testing.T) {
	rules := DefaultCTFRules()
	attacker := aliveSession(1, TeamA, Position{X: 10, Y: 10, Z: 0})
	flag := &Flag{Team: TeamB, Pos: Position{X: 10, Y: 10, Z: 0}, CarrierID: -1}

	if !rules.TryPickup(attacker, flag) {
		t.Fatal("TryPickup() = false, want true for adjacent enemy flag")
	}
	if flag.CarrierID != attacker.PlayerID {
		t.Fatalf("flag.CarrierID = %d, want %d", flag.CarrierID, attacker.PlayerID)
	}
}

func TestTryPickupOwnFlagRejected(t *testing.T) {
	rules := DefaultCTFRules()
	s := aliveSession(1, TeamA, Position{X: 10, Y: 10, Z: 0})
	flag := &Flag{Team: TeamA, Pos: Position{X: 10, Y: 10, Z: 0}, CarrierID: -1}

	if rules.TryPickup(s, flag) {
		t.Fatal("TryPickup() = true picking up own team's flag, want false")
	}
}

func TestTryPickupAlreadyHeldRejected(t *testing.T) {
	rules := DefaultCTFRules()
	s := aliveSession(2, TeamA, Position{X: 10, Y: 10, Z: 0})
	flag := &Flag{Team: TeamB, Pos: Position{X: 10, Y: 10, Z: 0}, CarrierID: 99}

	if rules.TryPickup(s, flag) {
		t.Fatal("TryPickup() = true for already-held flag, want false")
	}
}

func TestTryPickupOutOfRangeRejected(t *testing.T) {
	rules := DefaultCTFRules()
	s := aliveSession(1, TeamA, Position{X: 0, Y: 0, Z: 0})
	flag := &Flag{Team: TeamB, Pos: Position{X: 100, Y: 100, Z: 0}, CarrierID: -1}

	if rules.TryPickup(s, flag) {
		t.Fatal("TryPickup() = true out of pickup radius, want false")
	}
}

func TestDropSnapsToGroundBelowCarrier(t *testing.T) {
	rules := DefaultCTFRules()
	s := aliveSession(1, TeamA, Position{X: 12.7, Y: 5.2, Z: 40})
	flag := &Flag{Team: TeamB, Pos: Position{}, CarrierID: 1}

	rules.Drop(s, flag, flatGroundZ)

	if flag.Held() {
		t.Fatal("flag still held after Drop")
	}
	want := Position{X: 12, Y: 5, Z: 0}
	if flag.Pos != want {
		t.Fatalf("flag.Pos = %+v, want %+v", flag.Pos, want)
	}
}

func TestDropIgnoredForNonCarrier(t *testing.T) {
	rules := DefaultCTFRules()
	s := aliveSession(1, TeamA, Position{X: 1, Y: 1, Z: 0})
	flag := &Flag{Team: TeamB, Pos: Position{X: 9, Y: 9, Z: 9}, CarrierID: 2}

	rules.Drop(s, flag, flatGroundZ)

	if flag.CarrierID != 2 {
		t.Fatalf("flag.CarrierID = %d, want unchanged 2", flag.CarrierID)
	}
	if flag.Pos != (Position{X: 9, Y: 9, Z: 9}) {
		t.Fatal("flag.Pos changed for a non-carrier Drop call")
	}
}

func TestTryCaptureAtHomeBaseScores(t *testing.T) {
	rules := DefaultCTFRules()
	base := Base{Team: TeamA, Pos: Position{X: 50, Y: 50, Z: 0}}
	s := aliveSession(1, TeamA, base.Pos)
	carried := &Flag{Team: TeamB, Pos: Position{}, CarrierID: 1}
	team := &Team{ID: TeamA, Score: 0}

	captured, newScore := rules.TryCapture(s, carried, base, team)
	if !captured {
		t.Fatal("TryCapture() = false, want true")
	}
	if newScore != 1 {
		t.Fatalf("newScore = %d, want 1", newScore)
	}
	if carried.Held() {
		t.Fatal("captured flag still marked held")
	}
	if s.Kills != 10 {
		t.Fatalf("s.Kills = %d, want 10 (spec section 4.3's +10 personal score)", s.Kills)
	}
}

func TestTryCaptureNotCarryingRejected(t *testing.T) {
	rules := DefaultCTFRules()
	base := Base{Team: TeamA, Pos: Position{X: 50, Y: 50, Z: 0}}
	s := aliveSession(1, TeamA, base.Pos)
	carried := &Flag{Team: TeamB, Pos: Position{}, CarrierID: 2} // held by someone else
	team := &Team{ID: TeamA, Score: 0}

	captured, _ := rules.TryCapture(s, carried, base, team)
	if captured {
		t.Fatal("TryCapture() = true without carrying the flag, want false")
	}
}

func TestRespawnPlacesWithinTeamRegionAndResetsLoadout(t *testing.T) {
	rules := DefaultCTFRules()
	s := NewSession("peer")
	s.PlayerID = 1
	s.Team = TeamA
	s.Grenades = 0
	s.BlockBudget = -3
	rng := rand.New(rand.NewSource(1))

	rules.Respawn(s, flatGroundZ, rng)

	if !s.Alive() {
		t.Fatal("session not alive after Respawn")
	}
	if s.Grenades != MaxGrenades {
		t.Fatalf("Grenades = %d, want %d", s.Grenades, MaxGrenades)
	}
	if s.BlockBudget != StartingBlockBudget {
		t.Fatalf("BlockBudget = %d, want %d", s.BlockBudget, StartingBlockBudget)
	}
	region := TeamA.SpawnRegion()
	if s.Pos.X < float32(region.MinX) || s.Pos.X >= float32(region.MaxX) {
		t.Fatalf("Pos.X = %v, want within [%d,%d)", s.Pos.X, region.MinX, region.MaxX)
	}
	if s.Pos.Y < float32(region.MinY) || s.Pos.Y >= float32(region.MaxY) {
		t.Fatalf("Pos.Y = %v, want within [%d,%d)", s.Pos.Y, region.MinY, region.MaxY)
	}
}

func TestRefillRestoresLivingSessionOnly(t *testing.T) {
	rules := DefaultCTFRules()
	s := aliveSession(1, TeamA, Position{})
	hp := 10
	s.SetHP(&hp)
	s.Grenades = 0

	rules.Refill(s)

	if *s.HP != MaxHP {
		t.Fatalf("HP = %d, want %d", *s.HP, MaxHP)
	}
	if s.Grenades != MaxGrenades {
		t.Fatalf("Grenades = %d, want %d", s.Grenades, MaxGrenades)
	}
}

func TestRefillSkipsDeadSession(t *testing.T) {
	rules := DefaultCTFRules()
	s := NewSession("peer")
	s.PlayerID = 1
	s.SetHP(nil)

	rules.Refill(s)

	if s.HP != nil {
		t.Fatal("Refill() revived a dead session")
	}
}
