// Package udptransport is the reference Transport implementation spec
// section 4.6 calls for: a real net.PacketConn-based UDP listener. It owns
// the socket, the one-time CONNECTIONLESS handshake trigger and outbound
// framing. Ordinary datagrams go to Server.HandleDatagram, which queues
// them for the engine's loop goroutine; join handshakes call
// Server.ConnectWithVersion directly, which takes the engine's lock.
package udptransport

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log"
	"net"
	"sync"

	"voxctf/internal/game"
	"voxctf/internal/protocol"
)

const maxDatagramSize = 8192

// Server is the subset of *game.Server the transport needs to drive the
// engine. Declared locally so this package depends on game only through
// the shape it actually uses.
type Server interface {
	ConnectWithVersion(ctx context.Context, addr, requestedName, clientVersion string) (*game.Session, error)
	HandleDatagram(addr string, data []byte)
}

// Transport listens on a single UDP socket and fans datagrams in both
// directions: Send writes out, the Serve loop reads in and either
// completes a handshake or forwards to the bound Server's inbound queue.
type Transport struct {
	conn   net.PacketConn
	server Server

	mu    sync.Mutex
	addrs map[string]net.Addr // string form -> resolved net.Addr, for Send
}

// New opens the UDP socket at listenAddr (e.g. ":32887", matching the
// original's default port). Bind must be called with the Server before
// Serve is started.
func New(listenAddr string) (*Transport, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	return &Transport{conn: conn, addrs: make(map[string]net.Addr)}, nil
}

// Bind wires the Transport to the Server it serves. Kept as a separate
// step from New because Server and Transport are constructed in a cycle —
// NewServer needs a Transport, Serve needs a Server.
func (t *Transport) Bind(s Server) {
	t.server = s
}

// Send implements game.Transport.
func (t *Transport) Send(ctx context.Context, addr string, data []byte) error {
	t.mu.Lock()
	resolved, ok := t.addrs[addr]
	t.mu.Unlock()
	if !ok {
		var err error
		resolved, err = net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return err
		}
		t.mu.Lock()
		t.addrs[addr] = resolved
		t.mu.Unlock()
	}
	_, err := t.conn.WriteTo(data, resolved)
	return err
}

// Serve blocks reading datagrams until ctx is cancelled or the socket is
// closed. Every datagram is either a first-contact join hello (answered
// synchronously with Connect) or forwarded to the bound Server's inbound
// queue for processing on the next Tick.
func (t *Transport) Serve(ctx context.Context) error {
	if t.server == nil {
		return errors.New("udptransport: Serve called before Bind")
	}
	go func() {
		<-ctx.Done()
		t.conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := t.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		addr := from.String()
		data := make([]byte, n)
		copy(data, buf[:n])

		env, _, decErr := protocol.Decode(data)
		if decErr == nil && env.Loader == protocol.LoaderJoinWindowHello {
			t.handleHello(ctx, addr, from, env.Body)
			continue
		}

		t.server.HandleDatagram(addr, data)
	}
}

// handleHello answers a CONNECTIONLESS join trigger: the body carries a
// client-generated auth token, the requested display name, and the
// client's protocol version, the latter two length-prefixed strings. The
// auth token is opaque to the server - it exists only so a client that
// fires off a hello before any reply can match the eventual
// ConnectionResponse back to that attempt - and is echoed back verbatim,
// never compared against anything, per spec section 4.1's "keyed by the
// client-supplied auth value." On success the new session's id and team
// are also echoed so the client can self-identify before its map transfer
// begins; on a version mismatch the session is never created and nothing
// is sent back, per spec section 4.1's silent protocol-mismatch rejection.
func (t *Transport) handleHello(ctx context.Context, addr string, from net.Addr, body []byte) {
	t.mu.Lock()
	t.addrs[addr] = from
	t.mu.Unlock()

	r := bytes.NewReader(body)
	var authBuf [4]byte
	var auth uint32
	if _, err := r.Read(authBuf[:]); err == nil {
		auth = binary.BigEndian.Uint32(authBuf[:])
	}
	name, err := protocol.ReadString(r)
	if err != nil {
		name = "player"
	}
	version, _ := protocol.ReadString(r) // absent on short/legacy hello bodies; Connect treats "" as unchecked

	sess, err := t.server.ConnectWithVersion(ctx, addr, name, version)
	if err != nil {
		log.Printf("udptransport: rejected join from %s: %v", addr, err)
		return
	}

	var resp bytes.Buffer
	var authOut, idBuf [4]byte
	binary.BigEndian.PutUint32(authOut[:], auth)
	binary.BigEndian.PutUint32(idBuf[:], uint32(sess.PlayerID))
	resp.Write(authOut[:])
	resp.Write(idBuf[:])
	resp.WriteByte(byte(sess.Team))
	out := protocol.Encode(protocol.Envelope{Loader: protocol.LoaderConnectionResponse, Body: resp.Bytes()})
	if _, err := t.conn.WriteTo(out, from); err != nil {
		log.Printf("udptransport: failed to send connection response to %s: %v", addr, err)
	}
}

// Close releases the underlying socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}
