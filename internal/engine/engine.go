// Package engine implements the client-side state synchronization core:
// the push channel lifecycle, the event dispatch into the local poll
// store, the selection pointer, and the guarded user actions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickpoll/quickpoll/internal/api"
	"github.com/quickpoll/quickpoll/internal/event"
	"github.com/quickpoll/quickpoll/internal/metrics"
	"github.com/quickpoll/quickpoll/internal/model"
	"github.com/quickpoll/quickpoll/internal/notify"
	"github.com/quickpoll/quickpoll/internal/session"
	"github.com/quickpoll/quickpoll/internal/store"
	"github.com/quickpoll/quickpoll/internal/view"
)

// ErrAlreadyVoted is returned when a vote is rejected by the session
// guard before any network call is made.
var ErrAlreadyVoted = errors.New("already voted on this poll")

// PollAPI is what the engine needs from the poll service.
type PollAPI interface {
	ListPolls(ctx context.Context) ([]model.Poll, error)
	GetPoll(ctx context.Context, id string) (model.Poll, error)
	CreatePoll(ctx context.Context, req api.CreatePollRequest) (model.Poll, error)
	DeletePoll(ctx context.Context, id string) error
	CastVote(ctx context.Context, pollID string, optionIndex int) error
	LikePoll(ctx context.Context, pollID string) error
	DislikePoll(ctx context.Context, pollID string) error
	LikeOption(ctx context.Context, pollID string, optionIndex int) error
	SportsUpdates(ctx context.Context) ([]model.SportsUpdate, error)
}

// Options tune the reconnect behavior. The defaults reproduce the
// production sequence: delays of 1s, 2s, ... capped at 30s, at most 5
// attempts, then the client stays silently disconnected.
type Options struct {
	MaxReconnectAttempts int
	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxReconnectAttempts: 5,
		ReconnectBase:        time.Second,
		ReconnectCap:         30 * time.Second,
	}
}

// ReconnectDelay is the wait before the given attempt (1-based):
// min(base × attempt, cap).
func ReconnectDelay(attempt int, opts Options) time.Duration {
	d := time.Duration(attempt) * opts.ReconnectBase
	if d > opts.ReconnectCap {
		d = opts.ReconnectCap
	}
	return d
}

// Engine owns the client's synchronized state. Events are applied
// strictly in arrival order by the single Run loop; user actions and
// fetch completions interleave through the store's own locking. Nothing
// here is shared beyond one client instance.
type Engine struct {
	service  PollAPI
	store    *store.PollStore
	guards   *session.Guards
	notifier *notify.Notifier
	metrics  *metrics.EngineMetrics
	dial     event.Dialer
	opts     Options
	log      *logrus.Entry

	mu       sync.Mutex
	tab      view.Tab
	selected string
	onChange func()
}

func New(service PollAPI, st *store.PollStore, guards *session.Guards, notifier *notify.Notifier, m *metrics.EngineMetrics, dial event.Dialer, opts Options) *Engine {
	if opts.MaxReconnectAttempts == 0 {
		opts = DefaultOptions()
	}
	return &Engine{
		service:  service,
		store:    st,
		guards:   guards,
		notifier: notifier,
		metrics:  m,
		dial:     dial,
		opts:     opts,
		tab:      view.TabTrending,
		log:      logrus.WithField("component", "engine"),
	}
}

// OnChange registers a callback invoked after every visible state
// change: applied events, bootstrap completion, tab or selection moves.
func (e *Engine) OnChange(fn func()) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// Bootstrap populates the store from a full fetch: the summary list,
// then per-poll details for the stats fields. The fetch result is
// authoritative and overwrites whatever push events have patched in the
// meantime. If nothing is selected yet, the first poll of the active
// view becomes selected.
func (e *Engine) Bootstrap(ctx context.Context) error {
	summaries, err := e.service.ListPolls(ctx)
	if err != nil {
		e.notifier.Show("Failed to load polls")
		return fmt.Errorf("failed to list polls: %v", err)
	}

	polls := make([]*model.Poll, 0, len(summaries))
	for _, summary := range summaries {
		full, err := e.service.GetPoll(ctx, summary.ID)
		if err != nil {
			// Summary fields are better than nothing; stats arrive later
			// via events or the next fetch.
			e.log.WithError(err).WithField("poll_id", summary.ID).Warn("detail fetch failed")
			s := summary
			polls = append(polls, &s)
			continue
		}
		f := full
		polls = append(polls, &f)
	}
	e.store.Replace(polls)

	e.mu.Lock()
	if e.selected == "" {
		if visible := view.Derive(e.store.Snapshot(), e.tab); len(visible) > 0 {
			e.selected = visible[0].ID
		}
	}
	e.mu.Unlock()

	e.changed()
	return nil
}

// Run owns the push channel until ctx is cancelled: connect, read,
// reconnect with bounded backoff. At most one channel is live at a time.
// After MaxReconnectAttempts consecutive failures it returns nil and the
// client stays disconnected; cancellation during a backoff wait or a
// blocked read tears everything down.
func (e *Engine) Run(ctx context.Context) error {
	attempts := 0
	for {
		feed, err := e.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.WithError(err).Warn("push channel connect failed")
		} else {
			attempts = 0
			e.log.Info("push channel connected")
			e.readFrames(ctx, feed)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Warn("push channel closed")
		}

		if attempts >= e.opts.MaxReconnectAttempts {
			e.log.Warnf("push channel gone after %d reconnect attempts", attempts)
			return nil
		}
		attempts++
		e.metrics.Reconnects.Inc()

		select {
		case <-time.After(ReconnectDelay(attempts, e.opts)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) readFrames(ctx context.Context, feed event.Feed) {
	defer feed.Close()
	for {
		raw, err := feed.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				e.log.WithError(err).Debug("push channel read failed")
			}
			return
		}
		e.HandleFrame(raw)
	}
}

// HandleFrame decodes and applies one raw push frame. Undecodable frames
// are dropped and logged, never fatal; unknown event tags pass through
// silently for forward compatibility.
func (e *Engine) HandleFrame(raw []byte) {
	ev, err := event.Decode(raw)
	if err != nil {
		e.metrics.FramesDropped.Inc()
		e.log.WithError(err).Debug("dropping push frame")
		return
	}
	if ev == nil {
		return
	}
	e.Apply(ev)
}

// Apply merges one event into the store and adjusts the selection
// pointer where relevant. Count events for polls not present are dropped:
// the bootstrap fetch still in flight is authoritative for those, and no
// placeholder is ever created.
func (e *Engine) Apply(ev event.Event) {
	switch ev := ev.(type) {
	case event.PollCreated:
		p := ev.Poll
		e.store.Prepend(&p)
		e.mu.Lock()
		if e.selected == "" {
			e.selected = p.ID
		}
		e.mu.Unlock()
		e.notifier.Show("New poll created!")

	case event.PollDeleted:
		e.mu.Lock()
		wasSelected := e.selected == ev.PollID
		e.mu.Unlock()

		e.store.Remove(ev.PollID)

		if wasSelected {
			e.mu.Lock()
			if visible := view.Derive(e.store.Snapshot(), e.tab); len(visible) > 0 {
				e.selected = visible[0].ID
			} else {
				e.selected = ""
			}
			e.mu.Unlock()
		}
		e.notifier.Show("Poll deleted successfully")

	case event.VoteCast:
		if !e.store.Patch(ev.PollID, func(p model.Poll) model.Poll {
			p.VoteCount = ev.VoteCount
			p.VoteDistribution = ev.VoteDistribution
			return p
		}) {
			e.metrics.EventsIgnored.Inc()
			return
		}

	case event.PollLiked:
		if !e.store.Patch(ev.PollID, func(p model.Poll) model.Poll {
			p.LikeCount = ev.LikeCount
			return p
		}) {
			e.metrics.EventsIgnored.Inc()
			return
		}

	case event.PollDisliked:
		if !e.store.Patch(ev.PollID, func(p model.Poll) model.Poll {
			p.DislikeCount = ev.DislikeCount
			return p
		}) {
			e.metrics.EventsIgnored.Inc()
			return
		}

	case event.OptionLiked:
		if !e.store.Patch(ev.PollID, func(p model.Poll) model.Poll {
			p.OptionLikeCounts = ev.OptionLikeCounts
			return p
		}) {
			e.metrics.EventsIgnored.Inc()
			return
		}
	}

	e.metrics.EventsApplied.WithLabelValues(event.Type(ev)).Inc()
	e.changed()
}

// Vote casts a vote unless this session already voted on the poll. The
// guard fires before any network call; the authoritative count arrives
// later as a vote_cast event.
func (e *Engine) Vote(ctx context.Context, pollID string, optionIndex int) error {
	if e.guards.HasVoted(pollID) {
		e.notifier.Show("You have already voted on this poll")
		return ErrAlreadyVoted
	}
	if err := e.service.CastVote(ctx, pollID, optionIndex); err != nil {
		e.notifier.Show("Failed to vote")
		return fmt.Errorf("vote failed: %v", err)
	}
	e.guards.MarkVoted(pollID)
	e.notifier.Show("Vote cast successfully!")
	return nil
}

// React records the clicked reaction for highlighting and sends the
// increment. Repeat clicks are not blocked: every click is one server
// increment, the recorded choice only drives which button is lit.
func (e *Engine) React(ctx context.Context, pollID string, kind session.Reaction) error {
	e.guards.RecordReaction(pollID, kind)
	e.changed()

	var err error
	if kind == session.ReactionLike {
		err = e.service.LikePoll(ctx, pollID)
	} else {
		err = e.service.DislikePoll(ctx, pollID)
	}
	if err != nil {
		e.log.WithError(err).WithField("poll_id", pollID).Warnf("%s failed", kind)
		return fmt.Errorf("%s failed: %v", kind, err)
	}
	return nil
}

// LikeOption likes an option once per session; further calls for the
// same (poll, option) pair are silent no-ops.
func (e *Engine) LikeOption(ctx context.Context, pollID string, optionIndex int) error {
	if e.guards.HasLikedOption(pollID, optionIndex) {
		return nil
	}
	if err := e.service.LikeOption(ctx, pollID, optionIndex); err != nil {
		return fmt.Errorf("option like failed: %v", err)
	}
	e.guards.MarkLikedOption(pollID, optionIndex)
	return nil
}

// CreatePoll validates and submits a new poll. The local insert happens
// when the poll_created event comes back, not here.
func (e *Engine) CreatePoll(ctx context.Context, question string, options []string, category string) (model.Poll, error) {
	kept := make([]string, 0, len(options))
	for _, opt := range options {
		if strings.TrimSpace(opt) != "" {
			kept = append(kept, opt)
		}
	}
	if strings.TrimSpace(question) == "" || len(kept) < 2 {
		e.notifier.Show("Please enter a question and at least 2 options")
		return model.Poll{}, errors.New("a question and at least 2 options are required")
	}

	poll, err := e.service.CreatePoll(ctx, api.CreatePollRequest{
		Question: question,
		Options:  kept,
		Category: category,
	})
	if err != nil {
		e.notifier.Show("Failed to create poll")
		return model.Poll{}, fmt.Errorf("create poll failed: %v", err)
	}
	e.notifier.Show("Poll created successfully!")
	return poll, nil
}

// DeletePoll asks the service to delete; the local removal arrives via
// the poll_deleted event.
func (e *Engine) DeletePoll(ctx context.Context, pollID string) error {
	if err := e.service.DeletePoll(ctx, pollID); err != nil {
		e.notifier.Show("Failed to delete poll")
		return fmt.Errorf("delete poll failed: %v", err)
	}
	return nil
}

// SetTab switches the active tab. Callers typically re-bootstrap after,
// matching the original's fetch-on-tab-switch.
func (e *Engine) SetTab(tab view.Tab) {
	e.mu.Lock()
	e.tab = tab
	e.mu.Unlock()
	e.changed()
}

func (e *Engine) Tab() view.Tab {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tab
}

// Select moves the selection pointer to the given poll id.
func (e *Engine) Select(pollID string) {
	e.mu.Lock()
	e.selected = pollID
	e.mu.Unlock()
	e.changed()
}

// Selected returns the current selection pointer, empty when none.
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

func (e *Engine) SelectedPoll() (*model.Poll, bool) {
	e.mu.Lock()
	id := e.selected
	e.mu.Unlock()
	if id == "" {
		return nil, false
	}
	return e.store.Get(id)
}

// View derives the ordered displayable list for the active tab.
func (e *Engine) View() []*model.Poll {
	e.mu.Lock()
	tab := e.tab
	e.mu.Unlock()
	return view.Derive(e.store.Snapshot(), tab)
}

// SportsUpdates passes through to the sports collaborator; the sports
// tab never touches the poll store.
func (e *Engine) SportsUpdates(ctx context.Context) ([]model.SportsUpdate, error) {
	return e.service.SportsUpdates(ctx)
}

func (e *Engine) Guards() *session.Guards {
	return e.guards
}

func (e *Engine) changed() {
	e.mu.Lock()
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}
