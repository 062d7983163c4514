package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"voxctf/internal/eventlog"
	"voxctf/internal/idpool"
	"voxctf/internal/multikey"
	"voxctf/internal/spatial"
)

// Config holds every server-wide tunable spec section 6 lists. It is kept
// as a flat struct (rather than nested sub-configs) because every field
// here is read by the core engine itself, unlike the ambient config
// package's sections which belong to collaborators/ops surfaces.
type Config struct {
	MaxPlayers              int
	MaxConnectionsPerIP     int
	MaxScore                int
	RespawnTime             time.Duration
	RefillInterval          time.Duration
	FriendlyFire            FriendlyFireMode
	FriendlyFireTime        time.Duration
	ServerPrefix            string
	SpeedHackDetect         bool
	FogColor                uint32
	Name                    string
	Version                 string
	TickRate                time.Duration
}

// FriendlyFireMode enumerates the three friendly-fire policies spec
// section 6 names.
type FriendlyFireMode uint8

const (
	FriendlyFireOff FriendlyFireMode = iota
	FriendlyFireOn
	FriendlyFireOnGrenadeOnly
)

func DefaultConfig() Config {
	return Config{
		MaxPlayers:          32,
		MaxConnectionsPerIP: 3,
		MaxScore:            10,
		RespawnTime:         8 * time.Second,
		RefillInterval:      30 * time.Second,
		FriendlyFire:        FriendlyFireOff,
		FriendlyFireTime:    2 * time.Second,
		ServerPrefix:        "[voxctf]",
		SpeedHackDetect:     true,
		FogColor:            0x80B0D0,
		Name:                "voxctf server",
		Version:             "1.0",
		TickRate:            50 * time.Millisecond, // 20 Hz, matching pyspades' UPDATE_FREQUENCY
	}
}

type inboundMsg struct {
	Addr string
	Data []byte
}

// Server is the whole engine: the single mutator of session/team/world
// state, run from a dedicated goroutine the same way the teacher's
// Engine.tick() is the sole mutator of its player map. Tick runs on that
// goroutine and HandleDatagram hands work to it through the lock-free
// inbound queue; the other public methods (ConnectWithVersion, Disconnect,
// HandleMapChunkAck, PlayerCount, TeamScores) may be called from other
// goroutines and serialize with Tick on mu, preserving the
// single-logical-task concurrency model spec section 5 requires despite
// Go's OS-thread scheduler.
type Server struct {
	mu sync.Mutex

	cfg Config

	sessions *multikey.Index[*Session]
	ids      *idpool.Pool

	teams [2]*Team
	bases [2]Base
	flags [2]*Flag

	handles map[int]Handle // player-id -> world character handle
	grenades map[Handle]int // grenade handle -> thrower player-id
	transfers map[int]*mapTransfer
	connsByIP map[string]int

	vmap      Map
	world     WorldKernel
	transport Transport
	master    MasterClient
	broadcast *BroadcastFabric
	validator InputValidator
	ctf       CTFRules
	ext       Extension
	events    *eventlog.Log
	leaderboard *Leaderboard

	rng *rand.Rand

	inbound *spatial.LockFreeQueue[inboundMsg]

	tickNum  uint64

	stopCh chan struct{}
	stopOnce sync.Once
}

// NewServer wires the engine to its collaborators. vmap and world should
// already be constructed (Generate called, if applicable) before the
// server starts ticking.
func NewServer(cfg Config, vmap Map, world WorldKernel, transport Transport, master MasterClient, ext Extension, events *eventlog.Log) *Server {
	if ext == nil {
		ext = NoopExtension{}
	}
	s := &Server{
		cfg:         cfg,
		sessions:    multikey.New[*Session](),
		ids:         idpool.New(),
		handles:     make(map[int]Handle),
		grenades:    make(map[Handle]int),
		transfers:   make(map[int]*mapTransfer),
		connsByIP:   make(map[string]int),
		vmap:        vmap,
		world:       world,
		transport:   transport,
		master:      master,
		broadcast:   NewBroadcastFabric(transport),
		validator:   DefaultInputValidator(),
		ctf:         DefaultCTFRules(),
		ext:         ext,
		events:      events,
		leaderboard: NewLeaderboard(),
		rng:         rand.New(rand.NewSource(1)),
		inbound:     spatial.NewLockFreeQueue[inboundMsg](1024),
		stopCh:      make(chan struct{}),
	}
	s.teams[TeamA] = NewTeam(TeamA, "A", 0x3060FF)
	s.teams[TeamB] = NewTeam(TeamB, "B", 0xFF4030)
	s.bases[TeamA] = Base{Team: TeamA, Pos: Position{X: 64, Y: 256, Z: float32(vmap.GetZ(64, 256))}}
	s.bases[TeamB] = Base{Team: TeamB, Pos: Position{X: 448, Y: 256, Z: float32(vmap.GetZ(448, 256))}}
	s.flags[TeamA] = NewFlag(TeamA, s.bases[TeamA])
	s.flags[TeamB] = NewFlag(TeamB, s.bases[TeamB])
	return s
}

// Run starts the fixed-tick GameLoop on the caller's goroutine and blocks
// until ctx is cancelled or Stop is called.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Stop halts Run's loop.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// HandleDatagram is called from the Transport's own goroutine(s); it never
// mutates engine state directly, only enqueues for the next Tick, keeping
// every state mutation on the loop goroutine.
func (s *Server) HandleDatagram(addr string, data []byte) {
	if !s.inbound.TryPush(inboundMsg{Addr: addr, Data: data}) {
		if s.events != nil {
			s.events.Emit(eventlog.KindDropped, "", fmt.Sprintf("inbound queue full, dropped packet from %s", addr))
		}
	}
}

// PlayerCount returns the number of non-closed sessions.
func (s *Server) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Len()
}

// TeamScores returns a snapshot-safe copy of team scores for presentation.
func (s *Server) TeamScores() (a, b int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teams[TeamA].Score, s.teams[TeamB].Score
}

// Leaderboard exposes the ranking structure for the admin API.
func (s *Server) Leaderboard() *Leaderboard {
	return s.leaderboard
}
