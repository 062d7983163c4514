package game

import (
	"bytes"
	"encoding/binary"
	"math"

	"voxctf/internal/protocol"
)

// The Encode* helpers below turn an in-engine value into a ready-to-send
// envelope. Every broadcast constructs its packet value on the stack right
// here — there is no package-level mutable loader singleton the way the
// original's position_data/block_action scratch objects were, per spec
// section 9's design note on eliminating global scratch loaders.

func encodePosition(p Position) []byte {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], math.Float32bits(p.X))
	binary.BigEndian.PutUint32(b[4:8], math.Float32bits(p.Y))
	binary.BigEndian.PutUint32(b[8:12], math.Float32bits(p.Z))
	return b[:]
}

func EncodePositionData(playerID int, p Position) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	buf.Write(encodePosition(p))
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderPositionData, Body: buf.Bytes()})
}

// EncodeOrientationData stamps the envelope with seq, the recipient's next
// per-recipient orientation sequence value (spec section 4.4) — callers
// encode one copy of the packet per recipient rather than sharing a single
// buffer, since the sequence number is recipient-specific.
func EncodeOrientationData(playerID int, o Orientation, seq uint16) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	buf.Write(encodePosition(Position(o)))
	var seqBuf [2]byte
	binary.BigEndian.PutUint16(seqBuf[:], seq)
	buf.Write(seqBuf[:])
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderOrientationData, Body: buf.Bytes()})
}

func encodeInputFlags(f InputFlags) byte {
	var b byte
	if f.Up {
		b |= 1 << 0
	}
	if f.Down {
		b |= 1 << 1
	}
	if f.Left {
		b |= 1 << 2
	}
	if f.Right {
		b |= 1 << 3
	}
	if f.Jump {
		b |= 1 << 4
	}
	if f.Crouch {
		b |= 1 << 5
	}
	if f.Sneak {
		b |= 1 << 6
	}
	if f.Sprint {
		b |= 1 << 7
	}
	return b
}

func EncodeInputData(playerID int, f InputFlags) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	buf.WriteByte(encodeInputFlags(f))
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderInputData, Body: buf.Bytes()})
}

func EncodeWeaponReload(playerID int) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderWeaponReload, Body: buf.Bytes()})
}

func EncodePlayerLeft(playerID int) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderPlayerLeft, Body: buf.Bytes()})
}

func EncodeKillAction(k protocol.KillAction) []byte {
	var buf bytes.Buffer
	var ids [4]byte
	binary.BigEndian.PutUint32(ids[:], uint32(k.PlayerID))
	buf.Write(ids[:])
	binary.BigEndian.PutUint32(ids[:], uint32(k.KillerID))
	buf.Write(ids[:])
	buf.WriteByte(byte(k.KillType))
	buf.WriteByte(k.RespawnSec)
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderKillAction, Body: buf.Bytes()})
}

func EncodeChatMessage(c protocol.ChatMessage) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(c.PlayerID))
	buf.Write(idBuf[:])
	if c.Global {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	protocol.WriteString(&buf, c.Value)
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderChatMessage, Body: buf.Bytes()})
}

func encodeBlockAction(playerID int, action BlockActionType, x, y, z int32) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	buf.WriteByte(byte(action))
	var coord [4]byte
	binary.BigEndian.PutUint32(coord[:], uint32(x))
	buf.Write(coord[:])
	binary.BigEndian.PutUint32(coord[:], uint32(y))
	buf.Write(coord[:])
	binary.BigEndian.PutUint32(coord[:], uint32(z))
	buf.Write(coord[:])
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderBlockAction, Body: buf.Bytes()})
}

func EncodeFogColor(color uint32) []byte {
	var buf bytes.Buffer
	var c [4]byte
	binary.BigEndian.PutUint32(c[:], color)
	buf.Write(c[:])
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderFogColor, Body: buf.Bytes()})
}

// EncodeExistingPlayer describes an already-seated session to a joiner
// still assembling its saved-loader queue.
func EncodeExistingPlayer(sess *Session) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(sess.PlayerID))
	buf.Write(idBuf[:])
	protocol.WriteString(&buf, sess.Name)
	buf.WriteByte(byte(sess.Team))
	buf.WriteByte(byte(sess.Weapon))
	buf.WriteByte(byte(sess.Tool))
	var c [4]byte
	binary.BigEndian.PutUint32(c[:], sess.Color)
	buf.Write(c[:])
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderExistingPlayer, Body: buf.Bytes()})
}

// EncodeStateData snapshots both teams' score/flag/base state for a
// joiner's saved-loader queue.
func EncodeStateData(s *Server) []byte {
	var st protocol.StateData
	for _, t := range []TeamID{TeamA, TeamB} {
		st.Teams[t] = protocol.CTFTeamState{
			Score:       s.teams[t].Score,
			FlagCarrier: s.flags[t].CarrierID,
			FlagPos:     s.flags[t].Pos,
			BasePos:     s.bases[t].Pos,
		}
	}

	var buf bytes.Buffer
	for _, ts := range st.Teams {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(int32(ts.Score)))
		buf.Write(b[:])
		binary.BigEndian.PutUint32(b[:], uint32(int32(ts.FlagCarrier)))
		buf.Write(b[:])
		buf.Write(encodePosition(ts.FlagPos))
		buf.Write(encodePosition(ts.BasePos))
	}
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderStateData, Body: buf.Bytes()})
}

func EncodeCreatePlayer(c protocol.CreatePlayer) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(c.PlayerID))
	buf.Write(idBuf[:])
	protocol.WriteString(&buf, c.Name)
	buf.WriteByte(byte(c.Team))
	buf.WriteByte(byte(c.Weapon))
	buf.Write(encodePosition(c.Pos))
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderCreatePlayer, Body: buf.Bytes()})
}

func EncodeIntelPickup(playerID int, team TeamID) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	buf.WriteByte(byte(team))
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderIntelPickup, Body: buf.Bytes()})
}

func EncodeIntelDrop(playerID int, team TeamID, pos Position) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	buf.WriteByte(byte(team))
	buf.Write(encodePosition(pos))
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderIntelDrop, Body: buf.Bytes()})
}

func EncodeIntelCapture(playerID int, winning bool) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	if winning {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderIntelCapture, Body: buf.Bytes()})
}

func EncodeRestock(playerID int) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderRestock, Body: buf.Bytes()})
}

func EncodeMoveObject(objectID int, kind uint8, pos Position) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(objectID))
	buf.Write(idBuf[:])
	buf.WriteByte(kind)
	buf.Write(encodePosition(pos))
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderMoveObject, Body: buf.Bytes()})
}

func EncodeSetHP(playerID int, hp *int) []byte {
	var buf bytes.Buffer
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(playerID))
	buf.Write(idBuf[:])
	if hp == nil {
		buf.WriteByte(0)
		buf.WriteByte(1)
	} else {
		buf.WriteByte(byte(*hp))
		buf.WriteByte(0)
	}
	return protocol.Encode(protocol.Envelope{Loader: protocol.LoaderSetHP, Body: buf.Bytes()})
}
