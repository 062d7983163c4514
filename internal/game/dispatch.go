package game

import (
	"context"
	"math"
	"strconv"
	"time"

	"voxctf/internal/eventlog"
	"voxctf/internal/protocol"
)

// Dispatch routes one decoded inbound packet from an InGame session to the
// matching handler, implementing the InGame dispatch table of spec
// section 4.1. Handshake/JoinWindow sessions never reach here — only
// Connect's map-transfer ack path handles them.
func (s *Server) Dispatch(ctx context.Context, sess *Session, env protocol.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.State != StateInGame {
		return
	}

	switch env.Loader {
	case protocol.LoaderPositionData:
		s.onPosition(ctx, sess, env.Body)
	case protocol.LoaderOrientationData:
		s.onOrientation(ctx, sess, env.Body)
	case protocol.LoaderInputData:
		s.onInput(ctx, sess, env.Body)
	case protocol.LoaderWeaponReload:
		s.onWeaponReload(ctx, sess)
	case protocol.LoaderHitPacket:
		s.onHit(ctx, sess, env.Body)
	case protocol.LoaderGrenadePacket:
		s.onGrenade(sess, env.Body)
	case protocol.LoaderSetTool:
		s.onSetTool(sess, env.Body)
	case protocol.LoaderSetColor:
		s.onSetColor(ctx, sess, env.Body)
	case protocol.LoaderChatMessage:
		s.onChatMessage(ctx, sess, env.Body)
	case protocol.LoaderFogColor:
		s.onFogColor(ctx, sess, env.Body)
	case protocol.LoaderChangeWeapon:
		s.onChangeWeapon(sess, env.Body)
	case protocol.LoaderChangeTeam:
		s.onChangeTeam(ctx, sess, env.Body)
	case protocol.LoaderBlockAction:
		s.onBlockAction(ctx, sess, env.Body)
	}
}

func readPlayerPrefixedID(b []byte) int {
	if len(b) < 4 {
		return 0
	}
	return int(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func (s *Server) onPosition(ctx context.Context, sess *Session, body []byte) {
	if len(body) < 16 {
		return
	}
	p := decodeTrailingPosition(body)

	result := s.validator.ValidatePosition(sess, p, time.Now())
	if !result.Accept {
		s.logHack(sess, result)
		if result.HackKind == "rubber_band" {
			// Force a server-authoritative resend of the pre-change position
			// rather than silently dropping — the client must snap back.
			resend := EncodePositionData(sess.PlayerID, sess.Pos)
			_ = s.broadcast.Send(ctx, sess, resend)
		}
		return
	}
	sess.Pos = p

	if sess.Alive() {
		s.applyFallDamage(ctx, sess, p)
	}
	if !sess.Alive() {
		return
	}

	s.maybeAutoCapture(ctx, sess)
	s.maybeRefill(ctx, sess)

	env := EncodePositionData(sess.PlayerID, p)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), sess, nil, KindGeneral, env)
}

func (s *Server) onOrientation(ctx context.Context, sess *Session, body []byte) {
	if len(body) < 16 {
		return
	}
	o := Orientation(decodeTrailingPosition(body))
	if result := s.validator.ValidateOrientation(o); !result.Accept {
		s.logHack(sess, result)
		return
	}
	sess.Orient = o

	s.broadcast.BroadcastOrientation(ctx, s.sessionsSnapshotLocked(), sess, sess.PlayerID, o)
}

func decodeTrailingPosition(body []byte) Position {
	return Position{
		X: decodeFloat32(body[4:8]),
		Y: decodeFloat32(body[8:12]),
		Z: decodeFloat32(body[12:16]),
	}
}

func decodeFloat32(b []byte) float32 {
	bits := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return math.Float32frombits(bits)
}

func (s *Server) onInput(ctx context.Context, sess *Session, body []byte) {
	if len(body) < 5 {
		return
	}
	flags := decodeInputFlags(body[4])
	airborne := sess.fallPeakZ != nil
	if result := s.validator.ValidateInput(sess, flags, time.Now()); !result.Accept {
		flags.Jump = false
		s.logHack(sess, result)
	}
	// Walk/crouch/aim/fire stance lives on the session; actual kinematics
	// stay client-authoritative (PositionData), the same division of labor
	// Position updates already follow.
	sess.Flags = flags
	sess.lastInputAt = time.Now()

	if sess.Fly && flags.Crouch && airborne {
		// fly mode: crouching while airborne injects a jump impulse that
		// only the flyer observes locally, per spec section 4.1.
		local := EncodeInputData(sess.PlayerID, InputFlags{Jump: true})
		_ = s.broadcast.Send(ctx, sess, local)
	}

	env := EncodeInputData(sess.PlayerID, flags)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), sess, nil, KindGeneral, env)
}

func decodeInputFlags(b byte) InputFlags {
	return InputFlags{
		Up:      b&(1<<0) != 0,
		Down:    b&(1<<1) != 0,
		Left:    b&(1<<2) != 0,
		Right:   b&(1<<3) != 0,
		Jump:    b&(1<<4) != 0,
		Crouch:  b&(1<<5) != 0,
		Sneak:   b&(1<<6) != 0,
		Sprint:  b&(1<<7) != 0,
	}
}

func (s *Server) onWeaponReload(ctx context.Context, sess *Session) {
	// Reload timing/ammo bookkeeping is left to the client-reported clip in
	// this reference engine; the server only stamps lastInputAt, which the
	// fire-rate window and the jump gate measure from.
	sess.lastInputAt = time.Now()

	env := EncodeWeaponReload(sess.PlayerID)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)
}

func (s *Server) onHit(ctx context.Context, sess *Session, body []byte) {
	if len(body) < 5 {
		return
	}
	targetID := readPlayerPrefixedID(body[0:4])
	kind := HitType(body[4])

	target, ok := s.sessions.ByID(targetID)
	if !ok || !target.Alive() || !sess.Alive() {
		return
	}

	if result := s.validator.ValidateFireRate(sess, time.Now()); !result.Accept {
		s.logHack(sess, result)
		return
	}

	if s.cfg.FriendlyFire != FriendlyFireOn && target.Team == sess.Team && target != sess {
		return
	}

	damage := weaponOrMeleeDamage(sess, kind)

	decision := s.ext.OnHit(sess, target, kind, damage)
	switch decision.Kind {
	case Deny:
		return
	case Substitute:
		if v, ok := decision.Value.(int); ok {
			damage = v
		}
	}

	s.applyDamage(ctx, sess, target, kind, damage)
}

func weaponOrMeleeDamage(attacker *Session, kind HitType) int {
	if attacker.Tool == ToolWeapon {
		return GetWeaponStats(attacker.Weapon).Damage[kind]
	}
	return meleeDamage(kind)
}

func (s *Server) applyDamage(ctx context.Context, attacker, target *Session, kind HitType, damage int) {
	hp := *target.HP - damage
	if hp <= 0 {
		s.killSession(ctx, attacker, target, kind)
		return
	}
	target.SetHP(&hp)
	_ = s.broadcast.Send(ctx, target, EncodeSetHP(target.PlayerID, target.HP))
	if s.events != nil {
		s.events.Emit(eventlog.KindDamage, itoaID(target.PlayerID), "")
	}
}

func (s *Server) killSession(ctx context.Context, attacker, target *Session, kind HitType) {
	target.SetHP(nil)
	target.Deaths++
	if attacker != nil && attacker != target {
		attacker.Kills++
		s.leaderboard.Update(attacker.PlayerID, attacker.Name, attacker.Kills)
	}

	for _, flag := range s.flags {
		if flag.CarrierID == target.PlayerID {
			s.ctf.Drop(target, flag, s.groundZ)
			dropEnv := EncodeIntelDrop(target.PlayerID, flag.Team, flag.Pos)
			s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, dropEnv)
			s.ext.OnFlagDrop(target, flag)
		}
	}

	killerID := target.PlayerID
	if attacker != nil {
		killerID = attacker.PlayerID
	}
	env := EncodeKillAction(protocol.KillAction{
		PlayerID:   target.PlayerID,
		KillerID:   killerID,
		KillType:   kind,
		RespawnSec: uint8(s.cfg.RespawnTime / time.Second),
	})
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)

	if attacker != nil {
		s.ext.OnKill(attacker, target, kind)
	}
	if s.events != nil {
		s.events.Emit(eventlog.KindKill, itoaID(target.PlayerID), "")
	}

	s.scheduleRespawn(target, s.cfg.RespawnTime)
}

// scheduleRespawn arms target's single pending deferred respawn, per spec
// section 5 — a session never has more than one respawn in flight, so a
// kill that lands just before a max-score reset_game (which force-respawns
// and cancels pending timers) can't double-respawn it.
func (s *Server) scheduleRespawn(target *Session, after time.Duration) {
	target.cancelRespawn()
	target.respawnTimer = time.AfterFunc(after, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if target.State != StateInGame {
			return
		}
		target.respawnTimer = nil
		s.ctf.Respawn(target, s.groundZ, s.rng)
		env := EncodeCreatePlayer(protocol.CreatePlayer{
			PlayerID: target.PlayerID,
			Name:     target.Name,
			Team:     int8(target.Team),
			Weapon:   target.Weapon,
			Pos:      target.Pos,
		})
		s.broadcast.Broadcast(context.Background(), s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)
	})
}

func (s *Server) onGrenade(sess *Session, body []byte) {
	if sess.Grenades <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(sess.lastGrenadeAt) < GrenadeThrowCooldown {
		return
	}
	if result := s.validator.ValidateFireRate(sess, now); !result.Accept {
		s.logHack(sess, result)
		return
	}
	sess.Grenades--
	sess.lastGrenadeAt = now
	const grenadeSpeed = 75.0
	velocity := Position{X: sess.Orient.X * grenadeSpeed, Y: sess.Orient.Y * grenadeSpeed, Z: sess.Orient.Z * grenadeSpeed}
	h := s.world.CreateGrenade(sess.Pos, velocity, 3.0)
	s.grenades[h] = sess.PlayerID
}

func (s *Server) onSetTool(sess *Session, body []byte) {
	if len(body) < 5 {
		return
	}
	sess.Tool = Tool(body[4])
}

func (s *Server) onSetColor(ctx context.Context, sess *Session, body []byte) {
	if len(body) < 8 {
		return
	}
	color := uint32(body[4])<<16 | uint32(body[5])<<8 | uint32(body[6])
	sess.Color = color
}

func (s *Server) onChatMessage(ctx context.Context, sess *Session, body []byte) {
	value, ok := decodeChatBody(body)
	if !ok {
		return
	}

	if cmd, isCmd := ParseChatMessage(value); isCmd {
		s.handleCommand(ctx, sess, cmd)
		return
	}

	if decision := s.ext.OnChatMessage(sess, true, value); decision.Kind == Deny {
		return
	}

	env := EncodeChatMessage(protocol.ChatMessage{PlayerID: sess.PlayerID, Global: true, Value: value})
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), sess, nil, KindGeneral, env)
}

func decodeChatBody(body []byte) (string, bool) {
	if len(body) < 7 {
		return "", false
	}
	n := int(uint16(body[5])<<8 | uint16(body[6]))
	if len(body) < 7+n {
		return "", false
	}
	return string(body[7 : 7+n]), true
}

// handleCommand is the small built-in command set every deployment gets
// for free. Command lines reach it without passing through the Extension's
// OnChatMessage hook, which only sees ordinary chat (commands are
// server-directed, not broadcast chat).
func (s *Server) handleCommand(ctx context.Context, sess *Session, cmd Command) {
	switch cmd.Name {
	case "team":
		// Reassignment handled identically to a ChangeTeam packet.
		if len(cmd.Args) == 1 {
			if cmd.Args[0] == "0" {
				s.reassignTeam(ctx, sess, TeamA)
			} else if cmd.Args[0] == "1" {
				s.reassignTeam(ctx, sess, TeamB)
			}
		}
	}
}

func (s *Server) onFogColor(ctx context.Context, sess *Session, body []byte) {
	if len(body) < 8 {
		return
	}
	color := uint32(body[4])<<16 | uint32(body[5])<<8 | uint32(body[6])
	s.cfg.FogColor = color

	env := EncodeFogColor(color)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)
}

func (s *Server) onChangeWeapon(sess *Session, body []byte) {
	if len(body) < 5 {
		return
	}
	sess.Weapon = Weapon(body[4])
}

func (s *Server) onChangeTeam(ctx context.Context, sess *Session, body []byte) {
	if len(body) < 5 {
		return
	}
	requested := TeamID(int8(body[4]))
	if requested != TeamA && requested != TeamB {
		return
	}
	s.reassignTeam(ctx, sess, requested)
}

func (s *Server) reassignTeam(ctx context.Context, sess *Session, to TeamID) {
	if sess.Team == to {
		return
	}
	for _, flag := range s.flags {
		if flag.CarrierID == sess.PlayerID {
			s.ctf.Drop(sess, flag, s.groundZ)
			dropEnv := EncodeIntelDrop(sess.PlayerID, flag.Team, flag.Pos)
			s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, dropEnv)
			s.ext.OnFlagDrop(sess, flag)
		}
	}
	delete(s.teams[sess.Team].Players, sess.PlayerID)
	sess.Team = to
	s.teams[to].Players[sess.PlayerID] = sess
	s.ctf.Respawn(sess, s.groundZ, s.rng)
}

func (s *Server) onBlockAction(ctx context.Context, sess *Session, body []byte) {
	if len(body) < 17 {
		return
	}
	action := BlockActionType(body[4])
	x := int32(uint32(body[5])<<24 | uint32(body[6])<<16 | uint32(body[7])<<8 | uint32(body[8]))
	y := int32(uint32(body[9])<<24 | uint32(body[10])<<16 | uint32(body[11])<<8 | uint32(body[12]))
	z := int32(uint32(body[13])<<24 | uint32(body[14])<<16 | uint32(body[15])<<8 | uint32(body[16]))

	if z >= BedrockZ {
		return // indestructible bedrock layer, spec section 4.1
	}

	now := time.Now()
	interval := BlockPlaceInterval
	if action != ActionBuild {
		interval = SpadeDigInterval
	}
	if now.Sub(sess.lastBlockAt) < interval {
		if result := s.validator.ValidateBlockRate(sess, now); !result.Accept {
			s.logHack(sess, result)
		}
		return
	}
	sess.lastBlockAt = now

	switch action {
	case ActionBuild:
		if sess.BlockBudget <= MinBlockBudget {
			return
		}
		if s.vmap.GetSolid(x, y, z) {
			return
		}
		if decision := s.ext.OnBlockBuild(sess, x, y, z); decision.Kind == Deny {
			return
		}
		s.vmap.SetPoint(x, y, z, sess.Color)
		sess.AdjustBlockBudget(-1)
	case ActionBulletDestroy:
		if decision := s.ext.OnBlockDestroy(sess, x, y, z, action); decision.Kind == Deny {
			return
		}
		s.vmap.RemovePoint(x, y, z)
		sess.AdjustBlockBudget(1)
	case ActionSpadeDestroy:
		if decision := s.ext.OnBlockDestroy(sess, x, y, z, action); decision.Kind == Deny {
			return
		}
		s.vmap.RemovePoint(x, y, z)
		s.vmap.RemovePoint(x, y, z-1)
		s.vmap.RemovePoint(x, y, z+1)
	case ActionGrenadeDestroy:
		if decision := s.ext.OnBlockDestroy(sess, x, y, z, action); decision.Kind == Deny {
			return
		}
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					s.vmap.RemovePoint(x+dx, y+dy, z+dz)
				}
			}
		}
	}

	env := encodeBlockAction(sess.PlayerID, action, x, y, z)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), sess, nil, KindGeneral, env)
	s.settle(ctx)
}

func (s *Server) logHack(sess *Session, result ValidationResult) {
	s.ext.OnHackAttempt(sess, result.HackKind, result.HackDetail)
	if s.events != nil {
		s.events.Emit(eventlog.KindHack, itoaID(sess.PlayerID), result.HackKind)
	}
}

// maybeAutoCapture checks pickup/capture conditions after a movement
// update — the original evaluates these on every position update rather
// than only in response to an explicit "interact" packet.
func (s *Server) maybeAutoCapture(ctx context.Context, sess *Session) {
	enemyFlag := s.flags[sess.Team.Other()]
	if !enemyFlag.Held() {
		if s.ctf.TryPickup(sess, enemyFlag) {
			s.ext.OnFlagPickup(sess, enemyFlag)
			env := EncodeIntelPickup(sess.PlayerID, enemyFlag.Team)
			s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)
		}
		return
	}
	if enemyFlag.CarrierID != sess.PlayerID {
		return
	}

	ownTeam := s.teams[sess.Team]
	ownBase := s.bases[sess.Team]

	captured, newScore := s.ctf.TryCapture(sess, enemyFlag, ownBase, ownTeam)
	if !captured {
		return
	}
	s.leaderboard.Update(sess.PlayerID, sess.Name, sess.Kills)

	enemyBase := s.bases[sess.Team.Other()]
	enemyFlag.Pos = enemyBase.Pos
	s.ext.OnFlagCapture(sess, sess.Team)
	if s.events != nil {
		s.events.Emit(eventlog.KindCapture, itoaID(sess.PlayerID), ownTeam.Name)
	}

	if newScore >= s.cfg.MaxScore {
		s.resetGame(ctx, sess.Team)
		return
	}

	env := EncodeIntelCapture(sess.PlayerID, false)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)
	flagEnv := EncodeMoveObject(int(enemyFlag.Team), moveObjectFlag, enemyFlag.Pos)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, flagEnv)
}

const moveObjectFlag uint8 = 0
const moveObjectCharacter uint8 = 1

// maybeRefill implements the in-base refill cooldown of spec section 4.3:
// a living player standing in their own base longer than RefillInterval
// since their last refill gets hp/grenades/blocks restored and a unicast
// Restock notice.
func (s *Server) maybeRefill(ctx context.Context, sess *Session) {
	if !sess.Alive() {
		return
	}
	base := s.bases[sess.Team]
	if distance(sess.Pos, base.Pos) > pickupRadius {
		return
	}
	now := time.Now()
	if !sess.lastRefillAt.IsZero() && now.Sub(sess.lastRefillAt) < s.cfg.RefillInterval {
		return
	}
	sess.lastRefillAt = now
	s.ctf.Refill(sess)
	sess.BlockBudget = StartingBlockBudget
	_ = s.broadcast.Send(ctx, sess, EncodeRestock(sess.PlayerID))
}

// resetGame implements spec section 4.3's win condition: every named
// session respawns, both team scores reset to zero, flags/bases are
// recreated at their spawn positions, and a winning IntelCapture plus
// on_game_end fire exactly once.
func (s *Server) resetGame(ctx context.Context, winner TeamID) {
	for _, t := range []TeamID{TeamA, TeamB} {
		s.teams[t].Score = 0
		s.flags[t] = NewFlag(t, s.bases[t])
	}

	for _, name := range s.sessions.Names() {
		sess, ok := s.sessions.ByName(name)
		if !ok {
			continue
		}
		sess.cancelRespawn()
		s.ctf.Respawn(sess, s.groundZ, s.rng)
		env := EncodeCreatePlayer(protocol.CreatePlayer{
			PlayerID: sess.PlayerID,
			Name:     sess.Name,
			Team:     int8(sess.Team),
			Weapon:   sess.Weapon,
			Pos:      sess.Pos,
		})
		s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, env)
	}

	capEnv := EncodeIntelCapture(-1, true)
	s.broadcast.Broadcast(ctx, s.sessionsSnapshotLocked(), nil, nil, KindGeneral, capEnv)
	s.ext.OnGameEnd(winner)
	if s.events != nil {
		s.events.Emit(eventlog.KindCapture, "", "game_end:"+s.teams[winner].Name)
	}
}

func itoaID(id int) string {
	return strconv.Itoa(id)
}
