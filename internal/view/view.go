package view

import (
	"math"
	"sort"

	"github.com/quickpoll/quickpoll/internal/model"
)

// Tab is the active sidebar tab.
type Tab string

const (
	TabTrending Tab = "trending"
	TabRecent   Tab = "recent"
	TabSports   Tab = "sports"
)

// Derive computes the displayable poll list for a tab from a store
// snapshot. Recent is the snapshot as-is (newest first). Trending is a
// copy sorted descending by trending score; ties keep their relative
// order, there is no secondary key. Sports shows game summaries instead
// of polls, so its poll list is empty.
func Derive(polls []*model.Poll, tab Tab) []*model.Poll {
	switch tab {
	case TabTrending:
		sorted := append([]*model.Poll(nil), polls...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].TrendingScore() > sorted[j].TrendingScore()
		})
		return sorted
	case TabSports:
		return nil
	default:
		return polls
	}
}

// Percentage is the share of votes for one option, rounded to the
// nearest whole percent. Zero when the poll has no votes or no
// distribution yet; an index missing from the distribution counts as
// zero votes.
func Percentage(p *model.Poll, optionIndex int) int {
	if p.VoteDistribution == nil || p.VoteCount == 0 {
		return 0
	}
	votes := p.VoteDistribution[optionIndex]
	return int(math.Round(float64(votes) / float64(p.VoteCount) * 100))
}

// OptionLikeCount defaults to zero when the mapping or index is absent.
func OptionLikeCount(p *model.Poll, optionIndex int) int {
	if p.OptionLikeCounts == nil {
		return 0
	}
	return p.OptionLikeCounts[optionIndex]
}
