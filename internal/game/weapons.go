package game

import "time"

// WeaponStats holds per-weapon constants. Hit resolution
// (weaponOrMeleeDamage) reads Damage; InputValidator's fire-rate check uses
// its own RapidFireMinGap, not FireInterval. Table shape
// follows the teacher's weapon-lookup-table pattern (a map keyed by the
// wire enum instead of scattered per-weapon constants).
type WeaponStats struct {
	Name         string
	FireInterval time.Duration // minimum time between HitPacket/shot events
	ClipSize     int
	ReloadTime   time.Duration
	Damage       map[HitType]int
}

var weaponTable = map[Weapon]WeaponStats{
	WeaponRifle: {
		Name:         "rifle",
		FireInterval: 500 * time.Millisecond,
		ClipSize:     10,
		ReloadTime:   2500 * time.Millisecond,
		Damage:       map[HitType]int{HitTorso: 49, HitHead: 100, HitArms: 30, HitLegs: 33},
	},
	WeaponSMG: {
		Name:         "smg",
		FireInterval: 100 * time.Millisecond,
		ClipSize:     30,
		ReloadTime:   2500 * time.Millisecond,
		Damage:       map[HitType]int{HitTorso: 29, HitHead: 75, HitArms: 18, HitLegs: 20},
	},
	WeaponShotgun: {
		Name:         "shotgun",
		FireInterval: 1000 * time.Millisecond,
		ClipSize:     6,
		ReloadTime:   500 * time.Millisecond, // reloads one shell at a time
		Damage:       map[HitType]int{HitTorso: 27, HitHead: 37, HitArms: 16, HitLegs: 18},
	},
}

// GetWeaponStats returns the stats for w, falling back to the rifle if an
// out-of-range value reaches here (ChangeWeapon stores the client's byte
// without range-checking it).
func GetWeaponStats(w Weapon) WeaponStats {
	if s, ok := weaponTable[w]; ok {
		return s
	}
	return weaponTable[WeaponRifle]
}

// Tool-level constants that apply regardless of which weapon is equipped.
const (
	SpadeDigInterval    = 200 * time.Millisecond
	SpadeDestroyDamage  = 34 // HP lost per spade hit when used as a weapon
	GrenadeDamage       = 100
	GrenadeThrowCooldown = 700 * time.Millisecond
	BlockPlaceInterval  = 100 * time.Millisecond
	MaxGrenades         = 2
	MaxHP               = 100

	// MaxRapidSpeed is the oldest-to-newest span RAPID_WINDOW_ENTRIES
	// tool-interval violations must exceed to be considered legitimate —
	// narrower than this and the player is hacking their fire rate.
	MaxRapidSpeed = 2 * time.Second

	// BedrockZ is the lowest layer of map depth no BlockAction may ever
	// touch, build or destroy, per spec section 4.1.
	BedrockZ = 62
)

// meleeDamage is the spade-as-weapon hit value, independent of the
// currently selected firearm.
func meleeDamage(kind HitType) int {
	if kind == HitHead {
		return MaxHP // one-shot headshot with the spade
	}
	return SpadeDestroyDamage
}
