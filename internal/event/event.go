package event

import (
	"encoding/json"
	"fmt"

	"github.com/quickpoll/quickpoll/internal/model"
)

// Wire tags carried in the "type" field of every push frame.
const (
	TypePollCreated  = "poll_created"
	TypePollDeleted  = "poll_deleted"
	TypeVoteCast     = "vote_cast"
	TypePollLiked    = "poll_liked"
	TypePollDisliked = "poll_disliked"
	TypeOptionLiked  = "option_liked"
)

// Event is one server-side state change to merge into the local store.
// The set of variants is closed; dispatch switches over the concrete
// types. Events are transient and discarded once applied.
type Event interface {
	eventType() string
}

type PollCreated struct {
	Poll model.Poll `json:"poll"`
}

type PollDeleted struct {
	PollID string `json:"poll_id"`
}

type VoteCast struct {
	PollID           string      `json:"poll_id"`
	VoteCount        int         `json:"vote_count"`
	VoteDistribution map[int]int `json:"vote_distribution"`
}

type PollLiked struct {
	PollID    string `json:"poll_id"`
	LikeCount int    `json:"like_count"`
}

type PollDisliked struct {
	PollID       string `json:"poll_id"`
	DislikeCount int    `json:"dislike_count"`
}

type OptionLiked struct {
	PollID           string      `json:"poll_id"`
	OptionLikeCounts map[int]int `json:"option_like_counts"`
}

func (PollCreated) eventType() string  { return TypePollCreated }
func (PollDeleted) eventType() string  { return TypePollDeleted }
func (VoteCast) eventType() string     { return TypeVoteCast }
func (PollLiked) eventType() string    { return TypePollLiked }
func (PollDisliked) eventType() string { return TypePollDisliked }
func (OptionLiked) eventType() string  { return TypeOptionLiked }

// Decode parses a raw push frame. A frame with an unknown tag decodes to
// (nil, nil): newer servers may ship event types this client does not
// know, and those must pass through silently. Only an unparseable frame
// is an error, and the caller drops it without touching any state.
func Decode(raw []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed frame: %v", err)
	}

	switch envelope.Type {
	case TypePollCreated:
		var ev PollCreated
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %v", envelope.Type, err)
		}
		return ev, nil
	case TypePollDeleted:
		var ev PollDeleted
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %v", envelope.Type, err)
		}
		return ev, nil
	case TypeVoteCast:
		var ev VoteCast
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %v", envelope.Type, err)
		}
		return ev, nil
	case TypePollLiked:
		var ev PollLiked
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %v", envelope.Type, err)
		}
		return ev, nil
	case TypePollDisliked:
		var ev PollDisliked
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %v", envelope.Type, err)
		}
		return ev, nil
	case TypeOptionLiked:
		var ev OptionLiked
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %v", envelope.Type, err)
		}
		return ev, nil
	default:
		return nil, nil
	}
}

// Encode builds the wire frame for an event, envelope tag included.
// Used by the server side; the client only decodes.
func Encode(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %v", ev.eventType(), err)
	}

	// Splice the tag into the marshaled object rather than duplicating
	// every variant as an envelope struct.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to re-read %s event: %v", ev.eventType(), err)
	}
	fields["type"] = json.RawMessage(fmt.Sprintf("%q", ev.eventType()))

	return json.Marshal(fields)
}

// Type returns the wire tag of an event.
func Type(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.eventType()
}

// PollID names the poll an event targets. For PollCreated that is the id
// of the poll travelling inside the event.
func PollID(ev Event) string {
	switch ev := ev.(type) {
	case PollDeleted:
		return ev.PollID
	case VoteCast:
		return ev.PollID
	case PollLiked:
		return ev.PollID
	case PollDisliked:
		return ev.PollID
	case OptionLiked:
		return ev.PollID
	case PollCreated:
		return ev.Poll.ID
	}
	return ""
}
