package store

import (
	"context"
	"sync"
)

// Stats is the aggregate engagement for one poll.
type Stats struct {
	VoteCount        int
	LikeCount        int
	DislikeCount     int
	VoteDistribution map[int]int
	OptionLikeCounts map[int]int
}

// EngagementStore keeps the server-side tallies behind the poll service.
// Counters only ever grow; the one way down is Drop, which removes the
// whole poll.
type EngagementStore interface {
	AddVote(ctx context.Context, pollID string, optionIndex int) (voteCount int, distribution map[int]int, err error)
	AddLike(ctx context.Context, pollID string) (int, error)
	AddDislike(ctx context.Context, pollID string) (int, error)
	AddOptionLike(ctx context.Context, pollID string, optionIndex int) (map[int]int, error)
	Stats(ctx context.Context, pollID string) (Stats, error)
	Drop(ctx context.Context, pollID string) error
	Close() error
}

// MemoryEngagementStore is the default in-process implementation.
type MemoryEngagementStore struct {
	mu          sync.Mutex
	votes       map[string]map[int]int
	likes       map[string]int
	dislikes    map[string]int
	optionLikes map[string]map[int]int
}

func NewMemoryEngagementStore() *MemoryEngagementStore {
	return &MemoryEngagementStore{
		votes:       make(map[string]map[int]int),
		likes:       make(map[string]int),
		dislikes:    make(map[string]int),
		optionLikes: make(map[string]map[int]int),
	}
}

func (m *MemoryEngagementStore) AddVote(_ context.Context, pollID string, optionIndex int) (int, map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dist := m.votes[pollID]
	if dist == nil {
		dist = make(map[int]int)
		m.votes[pollID] = dist
	}
	dist[optionIndex]++

	total := 0
	for _, n := range dist {
		total += n
	}
	return total, copyCounts(dist), nil
}

func (m *MemoryEngagementStore) AddLike(_ context.Context, pollID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes[pollID]++
	return m.likes[pollID], nil
}

func (m *MemoryEngagementStore) AddDislike(_ context.Context, pollID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dislikes[pollID]++
	return m.dislikes[pollID], nil
}

func (m *MemoryEngagementStore) AddOptionLike(_ context.Context, pollID string, optionIndex int) (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.optionLikes[pollID]
	if counts == nil {
		counts = make(map[int]int)
		m.optionLikes[pollID] = counts
	}
	counts[optionIndex]++
	return copyCounts(counts), nil
}

func (m *MemoryEngagementStore) Stats(_ context.Context, pollID string) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, n := range m.votes[pollID] {
		total += n
	}
	return Stats{
		VoteCount:        total,
		LikeCount:        m.likes[pollID],
		DislikeCount:     m.dislikes[pollID],
		VoteDistribution: copyCounts(m.votes[pollID]),
		OptionLikeCounts: copyCounts(m.optionLikes[pollID]),
	}, nil
}

func (m *MemoryEngagementStore) Drop(_ context.Context, pollID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.votes, pollID)
	delete(m.likes, pollID)
	delete(m.dislikes, pollID)
	delete(m.optionLikes, pollID)
	return nil
}

func (m *MemoryEngagementStore) Close() error { return nil }

func copyCounts(src map[int]int) map[int]int {
	out := make(map[int]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
