// Package protocol defines the wire vocabulary exchanged between a session
// and its client: loader identifiers and the contained-packet payloads
// carried by spec section 4.1's dispatch table. It intentionally does not
// pin down a byte-exact framing — that is the Transport collaborator's
// concern (see spec section 4.6) — but gives every packet a stable Loader
// id and a minimal length-prefixed codec so the bundled udptransport
// reference implementation has something concrete to move over the wire.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// LoaderID identifies the shape of a contained packet, mirroring the
// loader-byte convention of the original protocol this spec distills.
type LoaderID uint8

const (
	LoaderPositionData LoaderID = iota
	LoaderOrientationData
	LoaderWorldUpdate
	LoaderInputData
	LoaderWeaponReload
	LoaderHitPacket
	LoaderGrenadePacket
	LoaderSetTool
	LoaderSetColor
	LoaderChatMessage
	LoaderFogColor
	LoaderChangeWeapon
	LoaderChangeTeam
	LoaderBlockAction
	LoaderExistingPlayer
	LoaderShortPlayerData
	LoaderKillAction
	LoaderPlayerLeft
	LoaderStateData
	LoaderMapStart
	LoaderMapChunk
	LoaderJoinWindowHello
	LoaderConnectionResponse
	LoaderMapChunkAck
	LoaderCreatePlayer
	LoaderIntelPickup
	LoaderIntelDrop
	LoaderIntelCapture
	LoaderRestock
	LoaderMoveObject
	LoaderSetHP
)

// Tool identifies which of the four equippable tools a session has active.
type Tool uint8

const (
	ToolSpade Tool = iota
	ToolBlock
	ToolWeapon
	ToolGrenade
)

// Weapon identifies the firearm a session carries. Distinct from Tool:
// SetTool selects among spade/block/weapon/grenade, ChangeWeapon only
// matters while ToolWeapon is selected.
type Weapon uint8

const (
	WeaponRifle Weapon = iota
	WeaponSMG
	WeaponShotgun
)

// HitType classifies where a HitPacket landed, selecting the entry of the
// engine's per-weapon and melee damage tables.
type HitType uint8

const (
	HitTorso HitType = iota
	HitHead
	HitArms
	HitLegs
	HitMelee
)

// BlockActionType distinguishes build from the two demolition modes.
type BlockActionType uint8

const (
	ActionBuild BlockActionType = iota
	ActionBulletDestroy
	ActionSpadeDestroy
	ActionGrenadeDestroy
)

// InputFlags mirrors InputData's packed movement/stance bits.
type InputFlags struct {
	Up, Down, Left, Right   bool
	Jump, Crouch, Sneak     bool
	Sprint                  bool
}

// Position is a voxel-space coordinate; Z increases downward as in the
// teacher's world convention carried over from spec section 3.
type Position struct{ X, Y, Z float32 }

// Orientation is a unit direction vector.
type Orientation struct{ X, Y, Z float32 }

// Contained packet payloads. Fields only carry the semantic content spec
// section 4.1 dispatches on; presentation-only fields (sequence numbers,
// padding) are left to the Transport implementation.

type PositionData struct {
	PlayerID int
	Pos      Position
}

type OrientationData struct {
	PlayerID int
	Orient   Orientation
}

type InputData struct {
	PlayerID int
	Flags    InputFlags
}

type WeaponReload struct {
	PlayerID int
}

type HitPacket struct {
	PlayerID int // attacker
	TargetID int
	Type     HitType
}

type GrenadePacket struct {
	PlayerID int
	Pos      Position
	Velocity Position
	FuseTime float32
}

type SetTool struct {
	PlayerID int
	Tool     Tool
}

type SetColor struct {
	PlayerID int
	Color    uint32 // 0xRRGGBB
}

type ChatMessage struct {
	PlayerID int
	Global   bool
	Value    string
}

type FogColor struct {
	Color uint32
}

type ChangeWeapon struct {
	PlayerID int
	Weapon   Weapon
}

type ChangeTeam struct {
	PlayerID int
	Team     int8 // 0 or 1; -1 requests spectator where supported
}

type BlockAction struct {
	PlayerID int
	Action   BlockActionType
	X, Y, Z  int32
}

type ExistingPlayer struct {
	PlayerID int
	Name     string
	Team     int8
	Weapon   Weapon
	Tool     Tool
	Color    uint32
}

type KillAction struct {
	PlayerID   int
	KillerID   int
	KillType   HitType
	RespawnSec uint8
}

type PlayerLeft struct {
	PlayerID int
}

// CreatePlayer announces a (re)spawned player's full loadout and position,
// sent save=true so joiners replay it during their saved-loader flush.
type CreatePlayer struct {
	PlayerID int
	Name     string
	Team     int8
	Weapon   Weapon
	Pos      Position
}

// IntelPickup announces a flag being taken up by a carrier.
type IntelPickup struct {
	PlayerID int
	Team     int8 // which team's flag was taken
}

// IntelDrop announces a flag coming to rest at Pos (snapped to ground).
type IntelDrop struct {
	PlayerID int
	Team     int8
	Pos      Position
}

// IntelCapture announces a successful capture; Winning is set when the
// capture also triggered a reset_game (max_score reached).
type IntelCapture struct {
	PlayerID int
	Winning  bool
}

// Restock is a unicast notice that a session's hp/grenades/blocks were
// refilled at its base.
type Restock struct {
	PlayerID int
}

// MoveObject reports a server-driven position correction for an entity
// that is not itself a player move — flag resets, settle() regrounding.
type MoveObject struct {
	ObjectID int // flag uses 0/1 (TeamID); characters use PlayerID
	Kind     uint8
	Pos      Position
}

// CTFTeamState is one team's slice of a StateData snapshot.
type CTFTeamState struct {
	Score        int
	FlagCarrier  int // player-id, or -1 if the flag is unheld
	FlagPos      Position
	BasePos      Position
}

// StateData is the full CTF snapshot sent to a joiner during its saved-
// loader replay, so it can render both teams' flags/bases/scores before
// its own CreatePlayer arrives.
type StateData struct {
	Teams [2]CTFTeamState
}

// SetHP is a unicast authoritative health correction/assignment — sent to a
// session after it takes non-lethal damage so the client's displayed HP
// matches the server's.
type SetHP struct {
	PlayerID int
	HP       int // interpreted as "no hp" when Dead is true
	Dead     bool
}

// Envelope pairs a loader id with its encoded payload for transport.
type Envelope struct {
	Loader LoaderID
	Body   []byte
}

// ErrShortPacket is returned by Decode when fewer bytes are present than
// the envelope header requires.
var ErrShortPacket = errors.New("protocol: short packet")

// Encode prefixes body with a one-byte loader id and a varint-free uint16
// length, good enough for the in-memory UDP reference transport; a real
// deployment would swap this for the original bit-exact framing.
func Encode(e Envelope) []byte {
	buf := make([]byte, 3+len(e.Body))
	buf[0] = byte(e.Loader)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(e.Body)))
	copy(buf[3:], e.Body)
	return buf
}

// Decode reverses Encode, returning the envelope and number of bytes
// consumed.
func Decode(data []byte) (Envelope, int, error) {
	if len(data) < 3 {
		return Envelope{}, 0, ErrShortPacket
	}
	loader := LoaderID(data[0])
	n := int(binary.BigEndian.Uint16(data[1:3]))
	if len(data) < 3+n {
		return Envelope{}, 0, ErrShortPacket
	}
	body := make([]byte, n)
	copy(body, data[3:3+n])
	return Envelope{Loader: loader, Body: body}, 3 + n, nil
}

// WriteString writes a length-prefixed UTF-8 string, used by the handful
// of payloads carrying free text (ChatMessage, ExistingPlayer's name).
func WriteString(buf *bytes.Buffer, s string) {
	b := []byte(s)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

// ReadString is the inverse of WriteString.
func ReadString(r *bytes.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}
