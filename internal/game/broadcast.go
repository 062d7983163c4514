package game

import (
	"context"

	"voxctf/internal/spatial"
)

// OrientationDistance is the radius beyond which a session's orientation
// updates stop being forwarded to a given recipient, per spec section 4.4
// — there is no point spending bandwidth on facing-direction packets for
// players too far away to render each other.
const OrientationDistance = 128.0

// worldSpanXY bounds the grid BroadcastFabric rebuilds for orientation
// broadcasts; it matches the map's x/y extent (worldMaxXY in loop.go).
const worldSpanXY = 512.0

// PacketKind labels a broadcast's category. Broadcast accepts it but does
// not branch on it; orientation updates take their own path through
// BroadcastOrientation.
type PacketKind uint8

const (
	KindGeneral PacketKind = iota
	KindOrientation
)

// BroadcastFabric is the engine's single path for fanning a packet out to
// connected sessions. It is the only place that understands the
// JoinWindow saved-loader queue and the orientation distance cull, so
// every dispatch handler funnels its outgoing packets through here instead
// of calling Transport directly.
//
// grid is rebuilt on every orientation broadcast from the live session set
// and used as a broad-phase cull ahead of the exact distance check — with
// at most 32 players the rebuild is cheap and keeps the cull from scanning
// recipients the cell buckets have already ruled out.
type BroadcastFabric struct {
	transport Transport
	grid      *spatial.SpatialGrid
}

func NewBroadcastFabric(t Transport) *BroadcastFabric {
	return &BroadcastFabric{
		transport: t,
		grid:      spatial.NewSpatialGrid(worldSpanXY, worldSpanXY, OrientationDistance, 32),
	}
}

// Send delivers data to a single session, respecting its FSM state: InGame
// sessions get it immediately, JoinWindow sessions have it queued for
// flush on EnterGame, Handshake/Closed sessions never receive anything.
func (b *BroadcastFabric) Send(ctx context.Context, s *Session, data []byte) error {
	switch s.State {
	case StateInGame:
		return b.transport.Send(ctx, s.Addr, data)
	case StateJoinWindow:
		s.QueueLoader(data)
		return nil
	default:
		return nil
	}
}

// Broadcast fans data out to every session in sessions except skip and
// sender (pass nil for either to exclude no one), skipping closed or Deaf
// sessions. Orientation packets don't flow through here — they differ per
// recipient (each is stamped with that recipient's own sequence number)
// and go through BroadcastOrientation instead.
func (b *BroadcastFabric) Broadcast(ctx context.Context, sessions map[int]*Session, sender *Session, skip *Session, kind PacketKind, data []byte) {
	for _, recipient := range sessions {
		if recipient == skip || recipient == sender {
			continue
		}
		if recipient.State == StateClosed || recipient.Deaf {
			continue
		}
		_ = b.Send(ctx, recipient, data)
	}
}

// BroadcastOrientation rebuilds the broad-phase grid from every InGame
// session, queries it for candidates near sender, and runs the exact
// distance() check against those candidates rather than every connected
// session. Unlike Broadcast, it encodes one envelope per recipient: spec
// section 4.4 stamps each sequenced packet with the recipient's own next
// orientation sequence value, so the wire bytes differ per recipient.
func (b *BroadcastFabric) BroadcastOrientation(ctx context.Context, sessions map[int]*Session, sender *Session, playerID int, o Orientation) {
	b.grid.Clear()
	for id, s := range sessions {
		if s.State != StateInGame {
			continue
		}
		b.grid.Insert(uint32(id), float64(s.Pos.X), float64(s.Pos.Y))
	}

	candidates := b.grid.QueryRadius(float64(sender.Pos.X), float64(sender.Pos.Y), OrientationDistance)
	for _, id := range candidates {
		recipient, ok := sessions[int(id)]
		if !ok || recipient == sender {
			continue
		}
		if recipient.State != StateInGame || recipient.Deaf {
			continue
		}
		if distance(sender.Pos, recipient.Pos) > OrientationDistance {
			continue
		}
		data := EncodeOrientationData(playerID, o, recipient.nextOrientSeq())
		_ = b.Send(ctx, recipient, data)
	}
}

// FlushJoinWindow sends every packet queued while s was in JoinWindow, in
// the order they were captured, then marks s InGame. Called once the
// session's own map transfer has completed.
func (b *BroadcastFabric) FlushJoinWindow(ctx context.Context, s *Session) error {
	queued := s.EnterGame()
	for _, data := range queued {
		if err := b.transport.Send(ctx, s.Addr, data); err != nil {
			return err
		}
	}
	return nil
}
