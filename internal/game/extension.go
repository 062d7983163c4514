package game

// DecisionKind is the three-valued result an Extension hook returns for a
// gameplay event it was consulted on, per the hook veto convention: a hook
// can let an action through unchanged, veto it outright, or replace its
// value before the engine applies it.
type DecisionKind uint8

const (
	Allow DecisionKind = iota
	Deny
	Substitute
)

// Decision is the return value of every Extension hook.
type Decision struct {
	Kind  DecisionKind
	Value any
}

// AllowDecision is shorthand for the common case.
func AllowDecision() Decision { return Decision{Kind: Allow} }

// DenyDecision is shorthand for vetoing an action.
func DenyDecision() Decision { return Decision{Kind: Deny} }

// SubstituteDecision replaces the hooked value with v.
func SubstituteDecision(v any) Decision { return Decision{Kind: Substitute, Value: v} }

// Extension is the single hook surface the engine consults at the points
// the original implementation called individual on_* methods. A deployment
// embeds NoopExtension and overrides only the hooks it cares about.
type Extension interface {
	OnPlayerJoin(s *Session) Decision
	OnPlayerLeave(s *Session)
	OnChatMessage(s *Session, global bool, value string) Decision
	OnBlockBuild(s *Session, x, y, z int32) Decision
	OnBlockDestroy(s *Session, x, y, z int32, action BlockActionType) Decision
	OnHit(attacker, target *Session, kind HitType, damage int) Decision
	OnKill(attacker, target *Session, kind HitType) Decision
	OnFlagPickup(s *Session, flag *Flag) Decision
	OnFlagDrop(s *Session, flag *Flag)
	OnFlagCapture(s *Session, team TeamID)
	OnGameEnd(winner TeamID)
	OnHackAttempt(s *Session, kind string, detail string)
}

// NoopExtension implements Extension with the permissive default for every
// hook. Deployments embed it so they only need to override what they use.
type NoopExtension struct{}

func (NoopExtension) OnPlayerJoin(*Session) Decision                        { return AllowDecision() }
func (NoopExtension) OnPlayerLeave(*Session)                                {}
func (NoopExtension) OnChatMessage(*Session, bool, string) Decision         { return AllowDecision() }
func (NoopExtension) OnBlockBuild(*Session, int32, int32, int32) Decision   { return AllowDecision() }
func (NoopExtension) OnHit(*Session, *Session, HitType, int) Decision       { return AllowDecision() }
func (NoopExtension) OnKill(*Session, *Session, HitType) Decision           { return AllowDecision() }
func (NoopExtension) OnFlagPickup(*Session, *Flag) Decision                 { return AllowDecision() }
func (NoopExtension) OnFlagDrop(*Session, *Flag)                           {}
func (NoopExtension) OnFlagCapture(*Session, TeamID)                       {}
func (NoopExtension) OnGameEnd(TeamID)                                     {}
func (NoopExtension) OnHackAttempt(*Session, string, string)                {}
func (NoopExtension) OnBlockDestroy(*Session, int32, int32, int32, BlockActionType) Decision {
	return AllowDecision()
}
