package game

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
)

// mapChunkSize matches spec section 6's wire framing: map data is paced to
// the client in 1024-byte chunks, at most maxChunksInFlight outstanding.
const mapChunkSize = 1024

// maxChunksInFlight is the original's pacing constant: never have more
// than this many unacknowledged map chunks outstanding to a single client,
// so a slow client's transfer doesn't starve the queue for fast ones.
const maxChunksInFlight = 4

// mapTransfer tracks one session's in-progress initial map download.
type mapTransfer struct {
	chunks    [][]byte
	nextSend  int
	inFlight  int
	acked     int
}

// SerializeMap produces a zlib-compressed byte representation of every
// solid voxel m contains, for initial transfer to a newly joined session
// per spec section 6 ("zlib-compressed map bytes framed in 1024-byte
// chunks"). The uncompressed record format is this engine's own
// (fixed 16-byte big-endian (x,y,z,color) records); spec's exact bit layout for the
// contained loaders is Transport's concern, not the engine's — only the
// compression and chunk pacing are spec section 6/5 requirements the
// engine itself must honor.
func SerializeMap(m Map, minXYZ, maxXYZ [3]int32) []byte {
	var raw bytes.Buffer
	for x := minXYZ[0]; x < maxXYZ[0]; x++ {
		for y := minXYZ[1]; y < maxXYZ[1]; y++ {
			for z := minXYZ[2]; z < maxXYZ[2]; z++ {
				if !m.GetSolid(x, y, z) {
					continue
				}
				color, _ := m.GetColor(x, y, z)
				var rec [16]byte
				binary.BigEndian.PutUint32(rec[0:4], uint32(x))
				binary.BigEndian.PutUint32(rec[4:8], uint32(y))
				binary.BigEndian.PutUint32(rec[8:12], uint32(z))
				binary.BigEndian.PutUint32(rec[12:16], color)
				raw.Write(rec[:])
			}
		}
	}

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	_, _ = w.Write(raw.Bytes())
	_ = w.Close()
	return compressed.Bytes()
}

func chunkBytes(data []byte, size int) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

// beginMapTransfer starts streaming the map to a session that just entered
// JoinWindow, sending up to maxChunksInFlight chunks immediately.
func (s *Server) beginMapTransfer(ctx context.Context, sess *Session, mapData []byte) {
	t := &mapTransfer{chunks: chunkBytes(mapData, mapChunkSize)}
	s.transfers[sess.PlayerID] = t
	s.pumpMapTransfer(ctx, sess, t)
}

// pumpMapTransfer sends chunks until maxChunksInFlight are outstanding or
// the transfer completes.
func (s *Server) pumpMapTransfer(ctx context.Context, sess *Session, t *mapTransfer) {
	for t.inFlight < maxChunksInFlight && t.nextSend < len(t.chunks) {
		chunk := t.chunks[t.nextSend]
		_ = s.transport.Send(ctx, sess.Addr, chunk)
		t.nextSend++
		t.inFlight++
	}
	if t.nextSend >= len(t.chunks) && t.inFlight == 0 {
		s.completeMapTransfer(ctx, sess)
	}
}

// HandleMapChunkAck is called when the client acknowledges receipt of a
// chunk, freeing a slot in the in-flight window and, once every chunk has
// been sent and acked, flushing the JoinWindow queue and moving the
// session into InGame.
func (s *Server) HandleMapChunkAck(ctx context.Context, playerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[playerID]
	if !ok {
		return
	}
	t.inFlight--
	t.acked++

	sess, ok := s.sessions.ByID(playerID)
	if !ok {
		return
	}
	if t.inFlight < 0 {
		t.inFlight = 0
	}
	s.pumpMapTransfer(ctx, sess, t)
}

func (s *Server) completeMapTransfer(ctx context.Context, sess *Session) {
	delete(s.transfers, sess.PlayerID)
	_ = s.broadcast.FlushJoinWindow(ctx, sess)
}
