package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpoll/quickpoll/internal/model"
)

func TestPrependOrder(t *testing.T) {
	s := NewPollStore()
	s.Prepend(&model.Poll{ID: "a"})
	s.Prepend(&model.Poll{ID: "b"})

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].ID)
	assert.Equal(t, "a", snap[1].ID)
}

// Pins the current create semantics: a poll_created for an id already in
// the store prepends a second entry instead of deduplicating. The server
// never re-announces an id today; if it ever does, this test is the
// place that flags the divergence.
func TestPrependDuplicateID(t *testing.T) {
	s := NewPollStore()
	s.Prepend(&model.Poll{ID: "a", Question: "old"})
	s.Prepend(&model.Poll{ID: "a", Question: "new"})

	assert.Equal(t, 2, s.Len())
	snap := s.Snapshot()
	assert.Equal(t, "new", snap[0].Question)
}

func TestRemoveAllMatches(t *testing.T) {
	s := NewPollStore()
	s.Prepend(&model.Poll{ID: "a"})
	s.Prepend(&model.Poll{ID: "b"})
	s.Prepend(&model.Poll{ID: "a"})

	assert.True(t, s.Remove("a"))
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Remove("a"))
}

func TestPatchScopedToMatch(t *testing.T) {
	s := NewPollStore()
	s.Prepend(&model.Poll{ID: "a", VoteCount: 1})
	s.Prepend(&model.Poll{ID: "b", VoteCount: 2})

	before := s.Snapshot()
	matched := s.Patch("a", func(p model.Poll) model.Poll {
		p.VoteCount = 9
		return p
	})
	require.True(t, matched)

	after := s.Snapshot()
	// untouched entries keep their pointers across the mutation
	assert.Same(t, before[0], after[0])
	assert.NotSame(t, before[1], after[1])
	assert.Equal(t, 9, after[1].VoteCount)
	// the original value the old snapshot points at is not dirtied
	assert.Equal(t, 1, before[1].VoteCount)
}

func TestPatchUnknownIDIsNoOp(t *testing.T) {
	s := NewPollStore()
	s.Prepend(&model.Poll{ID: "a"})

	matched := s.Patch("ghost", func(p model.Poll) model.Poll {
		p.VoteCount = 99
		return p
	})
	assert.False(t, matched)
	assert.Equal(t, 1, s.Len())
}

func TestReplace(t *testing.T) {
	s := NewPollStore()
	s.Prepend(&model.Poll{ID: "stale"})

	s.Replace([]*model.Poll{{ID: "x"}, {ID: "y"}})
	assert.Equal(t, []string{"x", "y"}, snapshotIDs(s))

	_, ok := s.Get("stale")
	assert.False(t, ok)
}

func TestGetReturnsFirstMatch(t *testing.T) {
	s := NewPollStore()
	s.Prepend(&model.Poll{ID: "a", Question: "old"})
	s.Prepend(&model.Poll{ID: "a", Question: "new"})

	p, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "new", p.Question)
}

func snapshotIDs(s *PollStore) []string {
	snap := s.Snapshot()
	out := make([]string, 0, len(snap))
	for _, p := range snap {
		out = append(out, p.ID)
	}
	return out
}
