package game

import (
	"math"
	"time"
)

// InputValidator holds the thresholds every incoming movement/combat packet
// is checked against before the engine trusts it, per spec section 4.2:
// a NaN guard, a rubber-band distance check, a speed-hack sliding window,
// a rapid-fire sliding window, and a jump gate.
type InputValidator struct {
	MaxSpeedPerTick     float64       // voxels/tick a position update may advance
	RubberBandDistance  float64       // per-axis x/y teleport limit that snaps the client back
	RubberBandDistanceZ float64       // per-axis z teleport limit (typically tighter, no fall exploits)
	SpeedWindowLimit    float64       // sum of the speed window's samples before it's a hack
	RapidFireMinGap     time.Duration // minimum gap the rapid-fire window will tolerate
	JumpCooldown        time.Duration
}

// DefaultInputValidator returns production thresholds, grounded on the
// walking/sprinting speed constants spec section 4.2 derives the checks
// from.
func DefaultInputValidator() InputValidator {
	return InputValidator{
		MaxSpeedPerTick:     2.0,
		RubberBandDistance:  16.0,
		RubberBandDistanceZ: 8.0,
		SpeedWindowLimit:    12.0,
		RapidFireMinGap:     80 * time.Millisecond,
		JumpCooldown:        300 * time.Millisecond,
	}
}

// ValidationResult reports whether a packet should be applied, rubber-banded,
// or treated as a hack attempt worth logging.
type ValidationResult struct {
	Accept    bool
	HackKind  string // empty unless a hack was detected
	HackDetail string
}

func ok() ValidationResult { return ValidationResult{Accept: true} }

func reject(kind, detail string) ValidationResult {
	return ValidationResult{Accept: false, HackKind: kind, HackDetail: detail}
}

// ValidatePosition implements the NaN guard, per-axis rubber-band check
// and speed-hack sliding window for an incoming PositionData packet. The
// rubber-band check is per-axis (|dx| or |dy| > RubberBandDistance, or
// |dz| > RubberBandDistanceZ) per spec section 4.2/4.1, not a single
// linear-distance threshold — a large lateral teleport and a large purely
// vertical one are each hacks in their own right even when the other axes
// haven't moved.
//
// The speed-hack check here is a summed movement-distance window rather
// than the original's client-timer/server-seconds ratio: the client never
// hands this server a timer sample (there's no TimerData loader in this
// engine's wire vocabulary), so there is nothing to compute that ratio
// from. A distance-over-positions window catches the same sustained-
// overspeed symptom using only data PositionData already carries.
func (v InputValidator) ValidatePosition(s *Session, next Position, now time.Time) ValidationResult {
	if isNaNPos(next) {
		return reject("nan_position", "position contained NaN/Inf component")
	}

	dx := math.Abs(float64(next.X - s.Pos.X))
	dy := math.Abs(float64(next.Y - s.Pos.Y))
	dz := math.Abs(float64(next.Z - s.Pos.Z))

	if dx > v.RubberBandDistance || dy > v.RubberBandDistance || dz > v.RubberBandDistanceZ {
		// Too far to be legitimate even once — snap back rather than trust it.
		return reject("rubber_band", "position delta exceeded hard teleport limit")
	}

	dist := distance(s.Pos, next)
	s.speedWindow.Add(dist)
	if s.speedWindow.Full() && s.speedWindow.Sum() > v.SpeedWindowLimit {
		return reject("speed_hack", "sustained movement exceeded max speed over window")
	}

	return ok()
}

// ValidateOrientation implements the NaN guard for OrientationData.
func (v InputValidator) ValidateOrientation(o Orientation) ValidationResult {
	if math.IsNaN(float64(o.X)) || math.IsNaN(float64(o.Y)) || math.IsNaN(float64(o.Z)) ||
		math.IsInf(float64(o.X), 0) || math.IsInf(float64(o.Y), 0) || math.IsInf(float64(o.Z), 0) {
		return reject("nan_orientation", "orientation contained NaN/Inf component")
	}
	return ok()
}

// ValidateInput applies the jump gate: repeated jump flags tighter than
// JumpCooldown apart are rejected (but still count as accepted movement,
// just with the jump bit cleared by the caller). The original gates on a
// z-acceleration ground-contact heuristic instead (z_accel in [0, 0.017)),
// derived from its own server-side integration of the character's
// velocity; this engine treats character position as client-authoritative
// and never integrates it, so it has no z-acceleration to sample. A
// cooldown is the closest same-shape substitute available without handing
// kinematics back to the server.
func (v InputValidator) ValidateInput(s *Session, flags InputFlags, now time.Time) ValidationResult {
	if flags.Jump {
		if now.Sub(s.lastInputAt) < v.JumpCooldown {
			return reject("jump_spam", "jump requested before cooldown elapsed")
		}
		s.lastInputAt = now
	}
	return ok()
}

// ValidateFireRate implements the rapid-fire sliding window shared by
// HitPacket and GrenadePacket: each shot/throw is added to the window, and
// if the window is full with a mean gap narrower than RapidFireMinGap the
// shooter is flagged.
func (v InputValidator) ValidateFireRate(s *Session, now time.Time) ValidationResult {
	elapsed := now.Sub(s.lastInputAt).Seconds()
	s.rapidFireWindow.Add(elapsed)
	if s.rapidFireWindow.Full() && s.rapidFireWindow.Mean() < v.RapidFireMinGap.Seconds() {
		return reject("rapid_fire", "fire interval sustained below weapon's minimum")
	}
	return ok()
}

// ValidateBlockRate feeds one tool-interval violation into s's rapid-fire
// window and reports a hack once the window is full with every sample
// closer together than MaxRapidSpeed end-to-end, per spec section 4.1's
// BlockAction rate limiting. The window is reset after tripping so a
// single burst reports exactly once rather than on every subsequent
// violation.
func (v InputValidator) ValidateBlockRate(s *Session, now time.Time) ValidationResult {
	s.blockRapidWindow.Add(float64(now.UnixNano()) / 1e9)
	if s.blockRapidWindow.Full() && s.blockRapidWindow.Span() < MaxRapidSpeed.Seconds() {
		s.blockRapidWindow.Reset()
		return reject("rapid_fire", "Rapid hack detected")
	}
	return ok()
}

func isNaNPos(p Position) bool {
	for _, c := range [3]float32{p.X, p.Y, p.Z} {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return true
		}
	}
	return false
}

func distance(a, b Position) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
