package model

import "time"

// Poll is the client-side snapshot of a single poll. The server owns the
// authoritative counts; snapshots are patched field-by-field as push
// events arrive.
type Poll struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"created_at"`
	VoteCount    int       `json:"vote_count"`
	LikeCount    int       `json:"like_count"`
	DislikeCount int       `json:"dislike_count"`

	// Keyed by option index. Absent until the first matching event or a
	// detail fetch; a missing index counts as zero.
	VoteDistribution map[int]int `json:"vote_distribution,omitempty"`
	OptionLikeCounts map[int]int `json:"option_like_counts,omitempty"`
}

// TrendingScore is the sort key for the trending view.
func (p *Poll) TrendingScore() int {
	return p.LikeCount + p.VoteCount
}
