// Package eventlog provides a bounded, rate-limited structured event log,
// the observability replacement for the original implementation's
// interleaved print diagnostics (spec section 9's design note). It is
// adapted from the teacher's internal/game/event_log.go: an atomic ring
// buffer fed by a global plus per-player golang.org/x/time/rate limiter,
// drained by a single async writer that batches JSON Lines to disk.
package eventlog

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Kind classifies a logged event. Unlike the teacher's fighting-game
// EventType enum (damage/heal/respawn/attack), these map onto voxctf's
// own domain: connection lifecycle, CTF scoring, and anti-cheat hits.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTick
	KindJoin
	KindLeave
	KindKill
	KindDamage
	KindPickup
	KindDrop
	KindCapture
	KindHack
	KindDropped // engine-side backpressure, not a gameplay event
)

func (k Kind) String() string {
	switch k {
	case KindTick:
		return "tick"
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindKill:
		return "kill"
	case KindDamage:
		return "damage"
	case KindPickup:
		return "pickup"
	case KindDrop:
		return "drop"
	case KindCapture:
		return "capture"
	case KindHack:
		return "hack"
	case KindDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event is one ring-buffer slot.
type Event struct {
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"ts"`
	PlayerID  string    `json:"playerId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

const (
	bufferSize          = 1024
	globalEventsPerSec  = 2000
	playerEventsPerSec  = 20
	batchFlushSize      = 64
	batchFlushInterval  = 200 * time.Millisecond
	limiterCleanupEvery = 5 * time.Minute
)

type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Log is a fixed-capacity ring buffer drained by one async writer
// goroutine. Writers never block: a rate-limited caller's event is dropped
// and counted in droppedCount; once the ring is full, each new event
// overwrites the oldest slot whether or not it has been flushed.
type Log struct {
	buffer    [bufferSize]Event
	writeHead uint64
	readHead  uint64

	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // map[string]*playerLimiterEntry

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	droppedCount uint64
	totalCount   uint64
}

// New returns a Log that is not yet writing to disk — call Start to begin
// the async flush goroutine, or Emit-only (in-memory ring, inspectable via
// Drain) if no file output is needed, e.g. in tests.
func New() *Log {
	return &Log{
		globalLimiter: rate.NewLimiter(globalEventsPerSec, globalEventsPerSec/10),
		stopCh:        make(chan struct{}),
	}
}

// Start begins the async batched writer, appending JSON Lines to path. An
// empty path means events are still recorded in the ring buffer (readable
// via Drain) but nothing is written to disk.
func (l *Log) Start(path string) error {
	if l.running.Load() {
		return nil
	}
	l.filePath = path
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		l.file = f
	}
	l.running.Store(true)
	l.wg.Add(1)
	go l.flushLoop()
	return nil
}

// Stop halts the flush goroutine and closes the output file, if any.
func (l *Log) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.wg.Wait()
		if l.file != nil {
			l.file.Close()
		}
	})
}

// Emit records an event if the global and per-player rate limits allow it.
// It never blocks the caller (the game loop).
func (l *Log) Emit(kind Kind, playerID string, detail string) {
	if !l.globalLimiter.Allow() {
		atomic.AddUint64(&l.droppedCount, 1)
		return
	}
	if playerID != "" && !l.playerLimiterFor(playerID).Allow() {
		atomic.AddUint64(&l.droppedCount, 1)
		return
	}

	idx := atomic.AddUint64(&l.writeHead, 1) - 1
	l.buffer[idx%bufferSize] = Event{Kind: kind, Timestamp: time.Now(), PlayerID: playerID, Detail: detail}
	atomic.AddUint64(&l.totalCount, 1)
}

func (l *Log) playerLimiterFor(playerID string) *rate.Limiter {
	if v, ok := l.playerLimiters.Load(playerID); ok {
		e := v.(*playerLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}
	entry := &playerLimiterEntry{
		limiter:  rate.NewLimiter(playerEventsPerSec, playerEventsPerSec/2+1),
		lastUsed: time.Now(),
	}
	actual, _ := l.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*playerLimiterEntry).limiter
}

// Stats returns total recorded and dropped counts, for the admin API.
func (l *Log) Stats() (total, dropped uint64) {
	return atomic.LoadUint64(&l.totalCount), atomic.LoadUint64(&l.droppedCount)
}

func (l *Log) flushLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(batchFlushInterval)
	defer ticker.Stop()
	cleanup := time.NewTicker(limiterCleanupEvery)
	defer cleanup.Stop()

	for {
		select {
		case <-l.stopCh:
			l.flushBatch()
			return
		case <-ticker.C:
			l.flushBatch()
		case <-cleanup.C:
			l.cleanupLimiters()
		}
	}
}

func (l *Log) flushBatch() {
	if l.file == nil {
		return
	}
	read := atomic.LoadUint64(&l.readHead)
	write := atomic.LoadUint64(&l.writeHead)
	if read >= write {
		return
	}

	n := write - read
	if n > batchFlushSize {
		n = batchFlushSize
	}

	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	enc := json.NewEncoder(l.file)
	for i := uint64(0); i < n; i++ {
		ev := l.buffer[(read+i)%bufferSize]
		_ = enc.Encode(ev)
	}
	atomic.StoreUint64(&l.readHead, read+n)
}

func (l *Log) cleanupLimiters() {
	cutoff := time.Now().Add(-limiterCleanupEvery * 2)
	l.playerLimiters.Range(func(key, value any) bool {
		if value.(*playerLimiterEntry).lastUsed.Before(cutoff) {
			l.playerLimiters.Delete(key)
		}
		return true
	})
}

// Drain returns up to maxItems unflushed events without requiring a file
// sink, for admin-API inspection or tests.
func (l *Log) Drain(maxItems int) []Event {
	read := atomic.LoadUint64(&l.readHead)
	write := atomic.LoadUint64(&l.writeHead)
	n := write - read
	if n > uint64(maxItems) {
		n = uint64(maxItems)
	}
	out := make([]Event, 0, n)
	for i := uint64(0); i < n; i++ {
		out = append(out, l.buffer[(read+i)%bufferSize])
	}
	return out
}
