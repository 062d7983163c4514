package game

import (
	"math"
	"testing"
	"time"
)

func newTestSession() *Session {
	s := NewSession("peer")
	s.PlayerID = 1
	return s
}

func TestValidatePositionRejectsNaN(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	next := Position{X: float32(math.NaN()), Y: 0, Z: 0}

	result := v.ValidatePosition(s, next, time.Now())
	if result.Accept {
		t.Fatal("ValidatePosition() accepted a NaN position")
	}
	if result.HackKind != "nan_position" {
		t.Fatalf("HackKind = %q, want nan_position", result.HackKind)
	}
}

func TestValidatePositionRejectsLateralTeleport(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	s.Pos = Position{X: 0, Y: 0, Z: 0}

	result := v.ValidatePosition(s, Position{X: 100, Y: 0, Z: 0}, time.Now())
	if result.Accept {
		t.Fatal("ValidatePosition() accepted an oversized x teleport")
	}
	if result.HackKind != "rubber_band" {
		t.Fatalf("HackKind = %q, want rubber_band", result.HackKind)
	}
}

func TestValidatePositionRejectsVerticalTeleportEvenWhenLateralSmall(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	s.Pos = Position{X: 0, Y: 0, Z: 0}

	// x/y barely move, but z jumps well past RubberBandDistanceZ.
	result := v.ValidatePosition(s, Position{X: 1, Y: 1, Z: 50}, time.Now())
	if result.Accept {
		t.Fatal("ValidatePosition() accepted an oversized z-only teleport")
	}
	if result.HackKind != "rubber_band" {
		t.Fatalf("HackKind = %q, want rubber_band", result.HackKind)
	}
}

func TestValidatePositionAcceptsOrdinaryMovement(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	s.Pos = Position{X: 0, Y: 0, Z: 0}

	result := v.ValidatePosition(s, Position{X: 1, Y: 1, Z: 0}, time.Now())
	if !result.Accept {
		t.Fatalf("ValidatePosition() rejected ordinary movement: %+v", result)
	}
}

func TestValidatePositionTripsSpeedWindowOnSustainedMovement(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	s.Pos = Position{X: 0, Y: 0, Z: 0}

	var last ValidationResult
	for i := 0; i < 8; i++ {
		next := Position{X: float32(i+1) * 10, Y: s.Pos.Y, Z: s.Pos.Z}
		last = v.ValidatePosition(s, next, time.Now())
		if last.Accept {
			s.Pos = next
		}
	}
	if last.Accept {
		t.Fatal("ValidatePosition() never tripped the speed window on sustained fast movement")
	}
}

func TestValidateOrientationRejectsNaN(t *testing.T) {
	v := DefaultInputValidator()
	result := v.ValidateOrientation(Orientation{X: float32(math.Inf(1)), Y: 0, Z: 0})
	if result.Accept {
		t.Fatal("ValidateOrientation() accepted an infinite component")
	}
}

func TestValidateInputJumpGate(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	now := time.Now()

	first := v.ValidateInput(s, InputFlags{Jump: true}, now)
	if !first.Accept {
		t.Fatal("first jump rejected, want accepted")
	}

	second := v.ValidateInput(s, InputFlags{Jump: true}, now.Add(10*time.Millisecond))
	if second.Accept {
		t.Fatal("jump within cooldown accepted, want rejected")
	}

	third := v.ValidateInput(s, InputFlags{Jump: true}, now.Add(v.JumpCooldown+time.Millisecond))
	if !third.Accept {
		t.Fatal("jump after cooldown elapsed rejected, want accepted")
	}
}

func TestValidateFireRateTripsOnSustainedRapidFire(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	now := time.Now()
	s.lastInputAt = now

	var last ValidationResult
	for i := 0; i < 6; i++ {
		now = now.Add(10 * time.Millisecond) // far below RapidFireMinGap
		last = v.ValidateFireRate(s, now)
		s.lastInputAt = now
	}
	if last.Accept {
		t.Fatal("ValidateFireRate() never tripped under sustained sub-minimum-gap fire")
	}
	if last.HackKind != "rapid_fire" {
		t.Fatalf("HackKind = %q, want rapid_fire", last.HackKind)
	}
}

func TestValidateFireRateAcceptsNormalPace(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	now := time.Now()
	s.lastInputAt = now

	var last ValidationResult
	for i := 0; i < 6; i++ {
		now = now.Add(v.RapidFireMinGap * 2)
		last = v.ValidateFireRate(s, now)
		s.lastInputAt = now
	}
	if !last.Accept {
		t.Fatalf("ValidateFireRate() rejected normal-paced fire: %+v", last)
	}
}

func TestValidateBlockRateTripsOnceThenResets(t *testing.T) {
	v := DefaultInputValidator()
	s := newTestSession()
	now := time.Now()

	var last ValidationResult
	for i := 0; i < 6; i++ {
		now = now.Add(10 * time.Millisecond)
		last = v.ValidateBlockRate(s, now)
	}
	if last.Accept {
		t.Fatal("ValidateBlockRate() never tripped under a rapid burst")
	}

	// Window was reset on trip, so the very next sample alone can't trip again.
	again := v.ValidateBlockRate(s, now.Add(time.Millisecond))
	if !again.Accept {
		t.Fatal("ValidateBlockRate() tripped again immediately after reset")
	}
}
