package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quickpoll/quickpoll/internal/model"
)

// ErrNotFound maps the service's 404 responses.
var ErrNotFound = errors.New("poll not found")

// Client talks to the poll service HTTP API and its sports endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreatePollRequest is the body of POST /api/polls.
type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Category string   `json:"category"`
}

type voteRequest struct {
	PollID      string `json:"poll_id"`
	OptionIndex int    `json:"option_index"`
}

type reactionRequest struct {
	PollID string `json:"poll_id"`
}

type pollList struct {
	Polls []model.Poll `json:"polls"`
}

type sportsUpdates struct {
	Updates []model.SportsUpdate `json:"updates"`
}

// ListPolls fetches the summary collection, newest first.
func (c *Client) ListPolls(ctx context.Context) ([]model.Poll, error) {
	var out pollList
	if err := c.get(ctx, "/api/polls", &out); err != nil {
		return nil, err
	}
	return out.Polls, nil
}

// GetPoll fetches one poll with its vote distribution and option like
// counts included.
func (c *Client) GetPoll(ctx context.Context, id string) (model.Poll, error) {
	var out model.Poll
	if err := c.get(ctx, "/api/polls/"+id, &out); err != nil {
		return model.Poll{}, err
	}
	return out, nil
}

func (c *Client) CreatePoll(ctx context.Context, req CreatePollRequest) (model.Poll, error) {
	var out model.Poll
	if err := c.post(ctx, "/api/polls", req, &out); err != nil {
		return model.Poll{}, err
	}
	return out, nil
}

func (c *Client) DeletePoll(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/polls/"+id, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %v", err)
	}
	defer resp.Body.Close()
	return statusError(resp.StatusCode)
}

func (c *Client) CastVote(ctx context.Context, pollID string, optionIndex int) error {
	return c.post(ctx, "/api/votes", voteRequest{PollID: pollID, OptionIndex: optionIndex}, nil)
}

func (c *Client) LikePoll(ctx context.Context, pollID string) error {
	return c.post(ctx, "/api/likes", reactionRequest{PollID: pollID}, nil)
}

func (c *Client) DislikePoll(ctx context.Context, pollID string) error {
	return c.post(ctx, "/api/dislikes", reactionRequest{PollID: pollID}, nil)
}

func (c *Client) LikeOption(ctx context.Context, pollID string, optionIndex int) error {
	return c.post(ctx, "/api/option-likes", voteRequest{PollID: pollID, OptionIndex: optionIndex}, nil)
}

func (c *Client) SportsUpdates(ctx context.Context) ([]model.SportsUpdate, error) {
	var out sportsUpdates
	if err := c.get(ctx, "/api/sports/updates", &out); err != nil {
		return nil, err
	}
	return out.Updates, nil
}

func (c *Client) GameData(ctx context.Context, gameID string) (model.GameData, error) {
	var out model.GameData
	if err := c.get(ctx, "/api/sports/game-data/"+gameID, &out); err != nil {
		return model.GameData{}, err
	}
	return out, nil
}

func (c *Client) GameDetails(ctx context.Context, gameID string) (model.GameDetails, error) {
	var out model.GameDetails
	if err := c.get(ctx, "/api/sports/game-details/"+gameID, &out); err != nil {
		return model.GameDetails{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %v", path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %v", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request for %s: %v", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %v", path, err)
		}
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 400:
		return fmt.Errorf("service returned status %d", code)
	}
	return nil
}
