package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickpoll/quickpoll/internal/api"
	"github.com/quickpoll/quickpoll/internal/model"
)

var seedPolls = []api.CreatePollRequest{
	{Question: "Tabs or spaces?", Options: []string{"Tabs", "Spaces"}, Category: "Tech"},
	{Question: "Best pizza topping?", Options: []string{"Pepperoni", "Mushrooms", "Pineapple"}, Category: "Food"},
	{Question: "Who takes the finals?", Options: []string{"Lakers", "Celtics"}, Category: "Sports"},
}

// Simulator drives random traffic through the poll service API so the
// push channel has something to say.
type Simulator struct {
	client *api.Client
	log    *logrus.Entry
	polls  []model.Poll
}

func New(client *api.Client) *Simulator {
	return &Simulator{
		client: client,
		log:    logrus.WithField("component", "simulator"),
	}
}

// Run seeds a few polls and then fires one random action every tick
// until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	for _, req := range seedPolls {
		poll, err := s.create(ctx, req)
		if err != nil {
			return err
		}
		s.polls = append(s.polls, poll)
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("simulator received shutdown signal")
			return nil

		case <-ticker.C:
			s.step(ctx)
		}
	}
}

func (s *Simulator) create(ctx context.Context, req api.CreatePollRequest) (model.Poll, error) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poll, err := s.client.CreatePoll(callCtx, req)
	if err != nil {
		return model.Poll{}, fmt.Errorf("failed to seed poll: %v", err)
	}
	s.log.WithField("poll_id", poll.ID).Infof("created poll %q", poll.Question)
	return poll, nil
}

func (s *Simulator) step(ctx context.Context) {
	if len(s.polls) == 0 {
		return
	}
	poll := s.polls[rand.Intn(len(s.polls))]

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	switch rand.Intn(5) {
	case 0, 1:
		idx := rand.Intn(len(poll.Options))
		s.log.WithField("poll_id", poll.ID).Infof("voting for option %d", idx)
		err = s.client.CastVote(callCtx, poll.ID, idx)
	case 2:
		s.log.WithField("poll_id", poll.ID).Info("liking poll")
		err = s.client.LikePoll(callCtx, poll.ID)
	case 3:
		s.log.WithField("poll_id", poll.ID).Info("disliking poll")
		err = s.client.DislikePoll(callCtx, poll.ID)
	case 4:
		idx := rand.Intn(len(poll.Options))
		s.log.WithField("poll_id", poll.ID).Infof("liking option %d", idx)
		err = s.client.LikeOption(callCtx, poll.ID, idx)
	}
	if err != nil {
		s.log.WithError(err).Warn("simulated action failed")
	}
}
