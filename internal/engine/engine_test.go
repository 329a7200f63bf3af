package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpoll/quickpoll/internal/api"
	"github.com/quickpoll/quickpoll/internal/event"
	"github.com/quickpoll/quickpoll/internal/metrics"
	"github.com/quickpoll/quickpoll/internal/model"
	"github.com/quickpoll/quickpoll/internal/notify"
	"github.com/quickpoll/quickpoll/internal/session"
	"github.com/quickpoll/quickpoll/internal/store"
	"github.com/quickpoll/quickpoll/internal/view"
)

type fakeService struct {
	polls     []model.Poll
	voteCalls int
	likeCalls int
	voteErr   error
}

func (f *fakeService) ListPolls(context.Context) ([]model.Poll, error) {
	return f.polls, nil
}

func (f *fakeService) GetPoll(_ context.Context, id string) (model.Poll, error) {
	for _, p := range f.polls {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Poll{}, api.ErrNotFound
}

func (f *fakeService) CreatePoll(_ context.Context, req api.CreatePollRequest) (model.Poll, error) {
	return model.Poll{ID: "created", Question: req.Question, Options: req.Options, Category: req.Category}, nil
}

func (f *fakeService) DeletePoll(context.Context, string) error { return nil }

func (f *fakeService) CastVote(context.Context, string, int) error {
	f.voteCalls++
	return f.voteErr
}

func (f *fakeService) LikePoll(context.Context, string) error {
	f.likeCalls++
	return nil
}

func (f *fakeService) DislikePoll(context.Context, string) error { return nil }

func (f *fakeService) LikeOption(context.Context, string, int) error { return nil }

func (f *fakeService) SportsUpdates(context.Context) ([]model.SportsUpdate, error) {
	return nil, nil
}

func newTestEngine(t *testing.T, service *fakeService) *Engine {
	t.Helper()
	return New(
		service,
		store.NewPollStore(),
		session.NewGuards(),
		notify.NewWithTTL(time.Minute),
		metrics.NewEngineMetrics(prometheus.NewRegistry(), "test"),
		nil,
		DefaultOptions(),
	)
}

func seed(e *Engine, polls ...model.Poll) {
	ptrs := make([]*model.Poll, 0, len(polls))
	for i := range polls {
		ptrs = append(ptrs, &polls[i])
	}
	e.store.Replace(ptrs)
}

func TestApplyPollCreated(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	e.SetTab(view.TabRecent)
	seed(e, model.Poll{ID: "a"})
	e.Select("a")

	e.Apply(event.PollCreated{Poll: model.Poll{ID: "b", Question: "Q?"}})

	polls := e.View()
	require.Len(t, polls, 2)
	assert.Equal(t, "b", polls[0].ID)
	// an existing selection is not stolen
	assert.Equal(t, "a", e.Selected())
}

func TestApplyPollCreatedSelectsWhenNoneSelected(t *testing.T) {
	e := newTestEngine(t, &fakeService{})

	e.Apply(event.PollCreated{Poll: model.Poll{ID: "b"}})
	assert.Equal(t, "b", e.Selected())
}

func TestApplyVoteCast(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	seed(e, model.Poll{ID: "a", Question: "Q?", VoteCount: 1})

	e.Apply(event.VoteCast{PollID: "a", VoteCount: 5, VoteDistribution: map[int]int{0: 5}})

	p, ok := e.store.Get("a")
	require.True(t, ok)
	assert.Equal(t, 5, p.VoteCount)
	assert.Equal(t, map[int]int{0: 5}, p.VoteDistribution)
	// a count patch replaces only the named fields
	assert.Equal(t, "Q?", p.Question)
}

func TestApplyVoteCastUnknownPollIsNoOp(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	seed(e, model.Poll{ID: "a"})

	e.Apply(event.VoteCast{PollID: "ghost", VoteCount: 5})
	assert.Equal(t, 1, e.store.Len())
	_, ok := e.store.Get("ghost")
	assert.False(t, ok)
}

func TestApplyReactionEvents(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	seed(e, model.Poll{ID: "a"})

	e.Apply(event.PollLiked{PollID: "a", LikeCount: 3})
	e.Apply(event.PollDisliked{PollID: "a", DislikeCount: 2})
	e.Apply(event.OptionLiked{PollID: "a", OptionLikeCounts: map[int]int{1: 7}})

	p, _ := e.store.Get("a")
	assert.Equal(t, 3, p.LikeCount)
	assert.Equal(t, 2, p.DislikeCount)
	assert.Equal(t, map[int]int{1: 7}, p.OptionLikeCounts)
}

func TestDeleteSelectedMovesPointerInRecentOrder(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	e.SetTab(view.TabRecent)
	seed(e, model.Poll{ID: "a"}, model.Poll{ID: "b"}, model.Poll{ID: "c"})
	e.Select("b")

	e.Apply(event.PollDeleted{PollID: "b"})
	assert.Equal(t, "a", e.Selected())
}

func TestDeleteSelectedMovesPointerInTrendingOrder(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	e.SetTab(view.TabTrending)
	seed(e,
		model.Poll{ID: "a", LikeCount: 1},
		model.Poll{ID: "b", LikeCount: 5},
		model.Poll{ID: "c", LikeCount: 9},
	)
	e.Select("b")

	// the pointer moves to the head of the current displayed order
	e.Apply(event.PollDeleted{PollID: "b"})
	assert.Equal(t, "c", e.Selected())
}

func TestDeleteLastPollClearsPointer(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	e.SetTab(view.TabRecent)
	seed(e, model.Poll{ID: "a"})
	e.Select("a")

	e.Apply(event.PollDeleted{PollID: "a"})
	assert.Equal(t, "", e.Selected())
	_, ok := e.SelectedPoll()
	assert.False(t, ok)
}

func TestDeleteUnselectedLeavesPointer(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	e.SetTab(view.TabRecent)
	seed(e, model.Poll{ID: "a"}, model.Poll{ID: "b"})
	e.Select("a")

	e.Apply(event.PollDeleted{PollID: "b"})
	assert.Equal(t, "a", e.Selected())
}

func TestMalformedFrameLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	e.SetTab(view.TabRecent)
	seed(e, model.Poll{ID: "a", VoteCount: 3})
	e.Select("a")
	e.guards.MarkVoted("a")

	before := e.store.Snapshot()

	e.HandleFrame([]byte(`{not json`))
	e.HandleFrame([]byte(`"just a string"`))

	after := e.store.Snapshot()
	require.Len(t, after, 1)
	assert.Same(t, before[0], after[0])
	assert.Equal(t, "a", e.Selected())
	assert.True(t, e.guards.HasVoted("a"))
}

func TestUnknownEventTagIsIgnored(t *testing.T) {
	e := newTestEngine(t, &fakeService{})
	seed(e, model.Poll{ID: "a"})

	e.HandleFrame([]byte(`{"type":"poll_archived","poll_id":"a"}`))
	assert.Equal(t, 1, e.store.Len())
}

func TestBootstrapSelectsFirstVisible(t *testing.T) {
	svc := &fakeService{polls: []model.Poll{
		{ID: "a", LikeCount: 1},
		{ID: "b", LikeCount: 9},
	}}
	e := newTestEngine(t, svc)
	e.SetTab(view.TabTrending)

	require.NoError(t, e.Bootstrap(context.Background()))
	assert.Equal(t, 2, e.store.Len())
	assert.Equal(t, "b", e.Selected())
}

func TestVoteGuardBlocksSecondVote(t *testing.T) {
	svc := &fakeService{}
	e := newTestEngine(t, svc)
	seed(e, model.Poll{ID: "a", Options: []string{"x", "y"}})

	require.NoError(t, e.Vote(context.Background(), "a", 0))
	assert.Equal(t, 1, svc.voteCalls)

	// rejected before any network call
	err := e.Vote(context.Background(), "a", 1)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, 1, svc.voteCalls)
}

func TestVoteFailureDoesNotMark(t *testing.T) {
	svc := &fakeService{voteErr: errors.New("boom")}
	e := newTestEngine(t, svc)

	err := e.Vote(context.Background(), "a", 0)
	assert.Error(t, err)
	assert.False(t, e.guards.HasVoted("a"))
}

func TestRepeatedReactionsAreNotBlocked(t *testing.T) {
	svc := &fakeService{}
	e := newTestEngine(t, svc)

	require.NoError(t, e.React(context.Background(), "a", session.ReactionLike))
	require.NoError(t, e.React(context.Background(), "a", session.ReactionLike))
	assert.Equal(t, 2, svc.likeCalls)

	r, ok := e.guards.ReactionOf("a")
	require.True(t, ok)
	assert.Equal(t, session.ReactionLike, r)
}

func TestCreatePollValidation(t *testing.T) {
	e := newTestEngine(t, &fakeService{})

	_, err := e.CreatePoll(context.Background(), "", []string{"a", "b"}, "General")
	assert.Error(t, err)

	// blank options do not count toward the minimum
	_, err = e.CreatePoll(context.Background(), "Q?", []string{"a", "  "}, "General")
	assert.Error(t, err)

	poll, err := e.CreatePoll(context.Background(), "Q?", []string{"a", "b", ""}, "General")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, poll.Options)
}

func TestReconnectDelaySequence(t *testing.T) {
	opts := DefaultOptions()
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second, 5 * time.Second}
	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, want[attempt-1], ReconnectDelay(attempt, opts))
	}
	// capped, never more than 30s
	assert.Equal(t, 30*time.Second, ReconnectDelay(31, opts))
}

type scriptedFeed struct {
	frames chan []byte
}

func (f *scriptedFeed) Read(ctx context.Context) ([]byte, error) {
	select {
	case frame, ok := <-f.frames:
		if !ok {
			return nil, errors.New("connection closed")
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *scriptedFeed) Close() error { return nil }

func TestRunStopsAfterMaxReconnectAttempts(t *testing.T) {
	var dials atomic.Int32
	dial := func(context.Context) (event.Feed, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	}

	e := New(
		&fakeService{},
		store.NewPollStore(),
		session.NewGuards(),
		notify.NewWithTTL(time.Minute),
		metrics.NewEngineMetrics(prometheus.NewRegistry(), "test"),
		dial,
		Options{MaxReconnectAttempts: 5, ReconnectBase: time.Millisecond, ReconnectCap: 5 * time.Millisecond},
	)

	err := e.Run(context.Background())
	require.NoError(t, err)
	// the initial connect plus exactly five reconnects, no sixth
	assert.Equal(t, int32(6), dials.Load())
}

func TestRunResetsAttemptsAfterSuccessfulOpen(t *testing.T) {
	var dials atomic.Int32
	dial := func(context.Context) (event.Feed, error) {
		n := dials.Add(1)
		if n == 3 {
			feed := &scriptedFeed{frames: make(chan []byte)}
			close(feed.frames) // opens, then immediately closes
			return feed, nil
		}
		return nil, errors.New("connection refused")
	}

	e := New(
		&fakeService{},
		store.NewPollStore(),
		session.NewGuards(),
		notify.NewWithTTL(time.Minute),
		metrics.NewEngineMetrics(prometheus.NewRegistry(), "test"),
		dial,
		Options{MaxReconnectAttempts: 5, ReconnectBase: time.Millisecond, ReconnectCap: 5 * time.Millisecond},
	)

	err := e.Run(context.Background())
	require.NoError(t, err)
	// two failures, one success that resets the counter, then five more
	assert.Equal(t, int32(8), dials.Load())
}

func TestRunAppliesFramesInArrivalOrder(t *testing.T) {
	feed := &scriptedFeed{frames: make(chan []byte, 3)}
	feed.frames <- []byte(`{"type":"poll_liked","poll_id":"a","like_count":1}`)
	feed.frames <- []byte(`{"type":"poll_liked","poll_id":"a","like_count":2}`)
	feed.frames <- []byte(`{"type":"poll_liked","poll_id":"a","like_count":3}`)
	close(feed.frames)

	dialed := false
	dial := func(context.Context) (event.Feed, error) {
		if dialed {
			return nil, errors.New("connection refused")
		}
		dialed = true
		return feed, nil
	}

	e := New(
		&fakeService{},
		store.NewPollStore(),
		session.NewGuards(),
		notify.NewWithTTL(time.Minute),
		metrics.NewEngineMetrics(prometheus.NewRegistry(), "test"),
		dial,
		Options{MaxReconnectAttempts: 1, ReconnectBase: time.Millisecond, ReconnectCap: time.Millisecond},
	)
	seed(e, model.Poll{ID: "a"})

	require.NoError(t, e.Run(context.Background()))

	p, _ := e.store.Get("a")
	assert.Equal(t, 3, p.LikeCount)
}

func TestRunTeardownDuringBackoffWait(t *testing.T) {
	dial := func(context.Context) (event.Feed, error) {
		return nil, errors.New("connection refused")
	}

	e := New(
		&fakeService{},
		store.NewPollStore(),
		session.NewGuards(),
		notify.NewWithTTL(time.Minute),
		metrics.NewEngineMetrics(prometheus.NewRegistry(), "test"),
		dial,
		Options{MaxReconnectAttempts: 5, ReconnectBase: time.Hour, ReconnectCap: time.Hour},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(20 * time.Millisecond) // let Run park in the backoff wait
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
