package game

import (
	"context"
	"time"

	"voxctf/internal/eventlog"
	"voxctf/internal/protocol"
)

// drainBatch is the max number of inbound datagrams processed per Tick —
// a backstop so one pathological tick can't stall the loop indefinitely
// under a flood; the rest simply wait for the next tick.
const drainBatch = 512

// Tick runs one iteration of the fixed-tick GameLoop: drain and dispatch
// every packet that arrived since the last tick, advance the WorldKernel,
// settle characters back onto solid ground, and explode fused-out grenades.
// The CTF refill check runs from position updates, not from Tick.
// This method is only ever called from Run's goroutine, making it the
// single mutator of all session/team/world state per spec section 5.
func (s *Server) Tick(now time.Time) {
	ctx := context.Background()

	msgs := s.inbound.Drain(drainBatch)
	for _, m := range msgs {
		env, _, err := protocol.Decode(m.Data)
		if err != nil {
			continue
		}
		sess, ok := s.sessionByAddr(m.Addr)
		if !ok {
			continue
		}
		if sess.State == StateJoinWindow && env.Loader == protocol.LoaderMapChunkAck {
			s.HandleMapChunkAck(ctx, sess.PlayerID)
			continue
		}
		s.Dispatch(ctx, sess, env)
	}

	s.mu.Lock()
	s.tickNum++
	dt := float32(s.cfg.TickRate.Seconds())
	s.world.Update(dt)
	s.settle(ctx)
	s.explodeGrenades(ctx)
	tickNum := s.tickNum
	s.mu.Unlock()

	if s.events != nil && tickNum%200 == 0 {
		s.events.Emit(eventlog.KindTick, "", "")
	}
}

// settle re-grounds every living character whose last known position has
// sunk below its column's ground height — typically because a block was
// removed out from under them since their last PositionData. sess.Pos, not the
// WorldKernel handle, is the authoritative character position in this
// engine: ordinary airborne/grounded movement is client-reported and
// already validated by InputValidator before it lands in sess.Pos, so
// settle only ever pushes a character back UP onto solid ground, it never
// overwrites a valid position with stale kernel state. The handle is kept
// in sync purely so collaborators that read WorldKernel.Position directly
// (hit-direction resolution, spatial queries) see the same value. Any
// correction broadcasts MoveObject(save=true), per spec section 4.5.
func (s *Server) settle(ctx context.Context) {
	for id, h := range s.handles {
		sess, ok := s.sessions.ByID(id)
		if !ok || !sess.Alive() {
			continue
		}
		pos := sess.Pos
		ground := s.vmap.GetZ(int32(pos.X), int32(pos.Y))
		if pos.Z > float32(ground) {
			pos.Z = float32(ground)
			sess.Pos = pos
			env := EncodeMoveObject(id, moveObjectCharacter, pos)
			s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)
		}
		s.world.SetPosition(h, pos)
	}
}

// FallDamageThreshold is how many voxels a character may drop before the
// landing starts to hurt — short hops and stair descents never trigger it.
const FallDamageThreshold = 12.0

// FallDamagePerVoxel is the HP cost of each voxel fallen past the threshold,
// matching the original's fall-damage scaling against impact speed (here
// approximated from reported drop distance, since this engine takes
// character position from the client rather than integrating it itself).
const FallDamagePerVoxel = 4.0

// applyFallDamage tracks s's highest point reached while airborne (smaller
// Z is "higher", per this world's Z-increases-downward convention) and, once
// it touches back down at or below ground level, hurts it proportionally to
// how far it fell — the "fall damage" the world tick is responsible for per
// spec section 1. Landing is detected from consecutive PositionData reports
// rather than the WorldKernel, since characters here are client-driven, not
// kernel-integrated.
func (s *Server) applyFallDamage(ctx context.Context, sess *Session, next Position) {
	ground := float32(s.groundZ(int32(next.X), int32(next.Y)))
	airborne := next.Z < ground-0.5

	if airborne {
		if sess.fallPeakZ == nil || next.Z < *sess.fallPeakZ {
			z := next.Z
			sess.fallPeakZ = &z
		}
		return
	}

	if sess.fallPeakZ == nil {
		return
	}
	fallDistance := float64(ground - *sess.fallPeakZ)
	sess.fallPeakZ = nil
	if fallDistance <= FallDamageThreshold {
		return
	}

	damage := int((fallDistance - FallDamageThreshold) * FallDamagePerVoxel)
	if damage <= 0 {
		return
	}
	s.applyDamage(ctx, nil, sess, HitLegs, damage)
}

// worldMaxZ/worldMaxXY bound the playable voxel volume, per spec
// section 7: explosions outside [0,512]x[0,512]x[0,63] are discarded
// without mutating the map.
const (
	worldMaxXY     = 512
	worldMaxZ      = 63
	grenadeDamageRadius = 4.0
)

// explodeGrenades observes every grenade the WorldKernel reports as fused
// out (Dead), per spec section 4.3/8's grenade scenario: it carves a 3x3x3
// cube of blocks around the grenade's integer position, broadcasts one
// GRENADE_DESTROY BlockAction, applies a flat GrenadeDamage hit to living
// players within blast radius (subject to friendly_fire), and frees the
// WorldKernel handle.
func (s *Server) explodeGrenades(ctx context.Context) {
	for h, throwerID := range s.grenades {
		if !s.world.Dead(h) {
			continue
		}
		pos := s.world.Position(h)
		s.world.Destroy(h)
		delete(s.grenades, h)

		cx := int32(pos.X)
		cy := int32(pos.Y)
		cz := int32(pos.Z)
		if cx < 0 || cx > worldMaxXY || cy < 0 || cy > worldMaxXY || cz < 0 || cz > worldMaxZ {
			continue // outside world bounds: discarded without mutating the map
		}

		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					s.vmap.RemovePoint(cx+dx, cy+dy, cz+dz)
				}
			}
		}
		env := encodeBlockAction(throwerID, ActionGrenadeDestroy, cx, cy, cz)
		s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)

		thrower, _ := s.sessions.ByID(throwerID)
		for _, name := range s.sessions.Names() {
			target, ok := s.sessions.ByName(name)
			if !ok || !target.Alive() {
				continue
			}
			if distance(target.Pos, pos) > grenadeDamageRadius {
				continue
			}
			if s.cfg.FriendlyFire == FriendlyFireOff && thrower != nil && target.Team == thrower.Team && target != thrower {
				continue
			}
			dmg := GrenadeDamage
			decision := s.ext.OnHit(thrower, target, HitMelee, dmg)
			if decision.Kind == Deny {
				continue
			}
			if decision.Kind == Substitute {
				if v, ok := decision.Value.(int); ok {
					dmg = v
				}
			}
			// Preserves the original's quirk of invoking the hit hook with
			// the thrower as the acting session even for self-damage.
			s.applyDamage(ctx, thrower, target, HitMelee, dmg)
		}
	}
}

// sessionByAddr resolves an inbound datagram's source address to its
// session. The inbound queue carries raw addresses rather than session
// pointers because a closed/reconnecting session must never be mutated
// off the loop goroutine.
func (s *Server) sessionByAddr(addr string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.sessions.Names() {
		if sess, ok := s.sessions.ByName(name); ok && sess.Addr == addr {
			return sess, true
		}
	}
	return nil, false
}
