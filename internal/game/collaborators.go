package game

import "context"

// Transport is the thin contract the engine needs from whatever moves
// bytes to and from clients (spec section 4.6). A concrete implementation
// (see package udptransport) owns the actual socket, framing and
// retransmission; the engine only ever calls Send and receives inbound
// envelopes through whatever channel the Transport was wired up with.
type Transport interface {
	// Send delivers a pre-encoded envelope to the peer identified by addr.
	Send(ctx context.Context, addr string, data []byte) error
}

// Map is the voxel world container/generator contract (spec section 4.6).
// The engine reads it for collision/spawn-height queries and writes to it
// on BlockAction; it never owns map storage itself.
type Map interface {
	GetColor(x, y, z int32) (uint32, bool)
	GetZ(x, y int32) int32 // topmost solid z at this column
	GetSolid(x, y, z int32) bool
	SetPoint(x, y, z int32, color uint32)
	RemovePoint(x, y, z int32)
	Generate(seed int64)
}

// WorldKernel is the physics/kinematics contract (spec section 4.6):
// character and grenade integration live here, not in the engine. The
// engine creates objects through it and reads back position/orientation/
// death state each tick.
type WorldKernel interface {
	CreateCharacter(pos Position) Handle
	CreateGrenade(pos Position, velocity Position, fuse float32) Handle
	Destroy(h Handle)
	SetPosition(h Handle, pos Position)
	SetAcceleration(h Handle, accel Position)
	Position(h Handle) Position
	Orientation(h Handle) Orientation
	Dead(h Handle) bool
	Update(dt float32)
}

// Handle is a small-integer reference into the WorldKernel's object slab,
// replacing the original's pointer back-references per the REDESIGN FLAG
// arena-index convention.
type Handle int32

// InvalidHandle is never a valid WorldKernel object.
const InvalidHandle Handle = -1

// MasterClient is the master-server heartbeat contract (spec section
// 4.6). A real implementation would register this server in a public
// listing; matchmaking itself is a non-goal so only set_count/disconnect
// are modeled.
type MasterClient interface {
	SetCount(playerCount int)
	OnDisconnect(fn func())
}
