package session

import (
	"fmt"
	"sync"
)

// Reaction is the last thumb a user clicked on a poll.
type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// Guards remembers actions already taken in this session so the UI can
// disable a vote button, grey out a liked option, or highlight the active
// reaction. It gates local affordances only: nothing here is a lock
// against the server, and the reaction choice in particular does not stop
// repeat clicks from incrementing server counts. State lives for the
// session and is gone on restart.
type Guards struct {
	mu           sync.Mutex
	votedPolls   map[string]struct{}
	likedOptions map[string]struct{}
	reactions    map[string]Reaction
}

func NewGuards() *Guards {
	return &Guards{
		votedPolls:   make(map[string]struct{}),
		likedOptions: make(map[string]struct{}),
		reactions:    make(map[string]Reaction),
	}
}

func (g *Guards) HasVoted(pollID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.votedPolls[pollID]
	return ok
}

func (g *Guards) MarkVoted(pollID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.votedPolls[pollID] = struct{}{}
}

func (g *Guards) HasLikedOption(pollID string, optionIndex int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.likedOptions[optionKey(pollID, optionIndex)]
	return ok
}

func (g *Guards) MarkLikedOption(pollID string, optionIndex int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.likedOptions[optionKey(pollID, optionIndex)] = struct{}{}
}

// RecordReaction overwrites any previous choice for the poll.
func (g *Guards) RecordReaction(pollID string, kind Reaction) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reactions[pollID] = kind
}

func (g *Guards) ReactionOf(pollID string) (Reaction, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.reactions[pollID]
	return r, ok
}

func optionKey(pollID string, optionIndex int) string {
	return fmt.Sprintf("%s-%d", pollID, optionIndex)
}
