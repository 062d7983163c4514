package game

import (
	"strconv"
	"sync"

	"voxctf/internal/spatial"
)

// Leaderboard ranks sessions by kill count using the package's concurrent
// skip list, the same structure the teacher's admin panel used for
// real-time ranking — repurposed here to key on player-id instead of a
// display-only score.
type Leaderboard struct {
	skipList *spatial.SkipList
	mu       sync.RWMutex // guards the names map only; skipList is its own concurrent structure
	names    map[string]string
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		skipList: spatial.NewSkipList(),
		names:    make(map[string]string),
	}
}

// Update records the current kill count for a player, keeping their
// display name for presentation.
func (lb *Leaderboard) Update(playerID int, name string, kills int) {
	key := strconv.Itoa(playerID)
	lb.skipList.Insert(key, float64(kills))

	lb.mu.Lock()
	lb.names[key] = name
	lb.mu.Unlock()
}

// Remove drops a player from the leaderboard on disconnect.
func (lb *Leaderboard) Remove(playerID int) {
	key := strconv.Itoa(playerID)
	lb.skipList.Remove(key)

	lb.mu.Lock()
	delete(lb.names, key)
	lb.mu.Unlock()
}

// Entry is a presentation-ready leaderboard row.
type Entry struct {
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
	Kills    int    `json:"kills"`
	Rank     int    `json:"rank"`
}

// Top returns up to n highest-kill entries, rank 1 first.
func (lb *Leaderboard) Top(n int) []Entry {
	if n <= 0 {
		return nil
	}
	rows := lb.skipList.GetRange(1, n)

	lb.mu.RLock()
	defer lb.mu.RUnlock()

	out := make([]Entry, 0, len(rows))
	for i, row := range rows {
		id, _ := strconv.Atoi(row.Key)
		out = append(out, Entry{
			PlayerID: id,
			Name:     lb.names[row.Key],
			Kills:    int(row.Score),
			Rank:     i + 1,
		})
	}
	return out
}

// Len returns how many players are currently ranked.
func (lb *Leaderboard) Len() int {
	return lb.skipList.Length()
}
