package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePollCreated(t *testing.T) {
	raw := []byte(`{"type":"poll_created","poll":{"id":"p1","question":"Q?","options":["a","b"],"category":"General","created_at":"2025-06-01T10:00:00Z","vote_count":0,"like_count":0,"dislike_count":0}}`)

	ev, err := Decode(raw)
	require.NoError(t, err)

	created, ok := ev.(PollCreated)
	require.True(t, ok)
	assert.Equal(t, "p1", created.Poll.ID)
	assert.Equal(t, []string{"a", "b"}, created.Poll.Options)
}

func TestDecodeVoteCast(t *testing.T) {
	// distribution keys arrive as stringified integers
	raw := []byte(`{"type":"vote_cast","poll_id":"p1","vote_count":10,"vote_distribution":{"0":3,"1":7}}`)

	ev, err := Decode(raw)
	require.NoError(t, err)

	vote, ok := ev.(VoteCast)
	require.True(t, ok)
	assert.Equal(t, "p1", vote.PollID)
	assert.Equal(t, 10, vote.VoteCount)
	assert.Equal(t, map[int]int{0: 3, 1: 7}, vote.VoteDistribution)
}

func TestDecodeReactions(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"poll_liked","poll_id":"p1","like_count":4}`))
	require.NoError(t, err)
	assert.Equal(t, PollLiked{PollID: "p1", LikeCount: 4}, ev)

	ev, err = Decode([]byte(`{"type":"poll_disliked","poll_id":"p1","dislike_count":2}`))
	require.NoError(t, err)
	assert.Equal(t, PollDisliked{PollID: "p1", DislikeCount: 2}, ev)

	ev, err = Decode([]byte(`{"type":"option_liked","poll_id":"p1","option_like_counts":{"1":5}}`))
	require.NoError(t, err)
	assert.Equal(t, OptionLiked{PollID: "p1", OptionLikeCounts: map[int]int{1: 5}}, ev)

	ev, err = Decode([]byte(`{"type":"poll_deleted","poll_id":"p1"}`))
	require.NoError(t, err)
	assert.Equal(t, PollDeleted{PollID: "p1"}, ev)
}

func TestDecodeUnknownTagIsSilent(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"poll_archived","poll_id":"p1"}`))
	assert.NoError(t, err)
	assert.Nil(t, ev)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)

	// well-formed envelope, wrong field shape
	_, err = Decode([]byte(`{"type":"vote_cast","poll_id":"p1","vote_count":"ten"}`))
	assert.Error(t, err)
}

func TestEncodeCarriesTag(t *testing.T) {
	frame, err := Encode(PollLiked{PollID: "p1", LikeCount: 3})
	require.NoError(t, err)

	ev, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, PollLiked{PollID: "p1", LikeCount: 3}, ev)
}

func TestPollID(t *testing.T) {
	assert.Equal(t, "p1", PollID(PollDeleted{PollID: "p1"}))
	assert.Equal(t, "p2", PollID(VoteCast{PollID: "p2"}))
}
