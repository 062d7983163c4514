package game

import "voxctf/internal/protocol"

// Local aliases so the rest of the package can talk about wire concepts
// without every file importing protocol directly.
type (
	Tool            = protocol.Tool
	Weapon          = protocol.Weapon
	HitType         = protocol.HitType
	BlockActionType = protocol.BlockActionType
	InputFlags      = protocol.InputFlags
	Position        = protocol.Position
	Orientation     = protocol.Orientation
)

const (
	ToolSpade   = protocol.ToolSpade
	ToolBlock   = protocol.ToolBlock
	ToolWeapon  = protocol.ToolWeapon
	ToolGrenade = protocol.ToolGrenade

	WeaponRifle   = protocol.WeaponRifle
	WeaponSMG     = protocol.WeaponSMG
	WeaponShotgun = protocol.WeaponShotgun

	HitTorso = protocol.HitTorso
	HitHead  = protocol.HitHead
	HitArms  = protocol.HitArms
	HitLegs  = protocol.HitLegs
	HitMelee = protocol.HitMelee

	ActionBuild          = protocol.ActionBuild
	ActionBulletDestroy  = protocol.ActionBulletDestroy
	ActionSpadeDestroy   = protocol.ActionSpadeDestroy
	ActionGrenadeDestroy = protocol.ActionGrenadeDestroy
)
