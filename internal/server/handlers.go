package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickpoll/quickpoll/internal/event"
	"github.com/quickpoll/quickpoll/internal/model"
)

type createPollRequest struct {
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

func (s *Server) handleListPolls(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.registry.Snapshot()
	polls := make([]model.Poll, 0, len(snapshot))
	for _, p := range snapshot {
		polls = append(polls, *p)
	}
	respondJSON(w, http.StatusOK, map[string][]model.Poll{"polls": polls})
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := s.registry.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Poll not found")
		return
	}

	stats, err := s.engagement.Stats(r.Context(), id)
	if err != nil {
		s.log.WithError(err).Error("failed to read engagement stats")
		respondError(w, http.StatusInternalServerError, "Failed to load poll stats")
		return
	}

	full := *p
	full.VoteCount = stats.VoteCount
	full.LikeCount = stats.LikeCount
	full.DislikeCount = stats.DislikeCount
	full.VoteDistribution = stats.VoteDistribution
	full.OptionLikeCounts = stats.OptionLikeCounts
	respondJSON(w, http.StatusOK, full)
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" || len(req.Options) < 2 {
		respondError(w, http.StatusBadRequest, "A question and at least 2 options are required")
		return
	}
	if req.Category == "" {
		req.Category = "General"
	}

	poll := model.Poll{
		ID:        uuid.NewString(),
		Question:  req.Question,
		Options:   req.Options,
		Category:  req.Category,
		CreatedAt: time.Now().UTC(),
	}
	s.registry.Prepend(&poll)

	s.broadcast(event.PollCreated{Poll: poll})
	respondJSON(w, http.StatusOK, poll)
}

func (s *Server) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.registry.Get(id); !ok {
		respondError(w, http.StatusNotFound, "Poll not found")
		return
	}

	// Broadcast first so clients see the delete even if cleanup fails.
	s.broadcast(event.PollDeleted{PollID: id})

	s.registry.Remove(id)
	if err := s.engagement.Drop(r.Context(), id); err != nil {
		s.log.WithError(err).Warn("failed to drop engagement data")
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Poll deleted successfully",
		"poll_id": id,
	})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	poll, ok := s.registry.Get(req.PollID)
	if !ok {
		respondError(w, http.StatusNotFound, "Poll not found")
		return
	}
	if req.OptionIndex < 0 || req.OptionIndex >= len(poll.Options) {
		respondError(w, http.StatusBadRequest, "Invalid option index")
		return
	}

	total, dist, err := s.engagement.AddVote(r.Context(), req.PollID, req.OptionIndex)
	if err != nil {
		s.log.WithError(err).Error("failed to record vote")
		respondError(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	s.registry.Patch(req.PollID, func(p model.Poll) model.Poll {
		p.VoteCount = total
		return p
	})
	s.metrics.VotesProcessed.WithLabelValues(req.PollID).Inc()

	s.broadcast(event.VoteCast{
		PollID:           req.PollID,
		VoteCount:        total,
		VoteDistribution: dist,
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"id":           uuid.NewString(),
		"poll_id":      req.PollID,
		"option_index": req.OptionIndex,
		"vote_count":   total,
	})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := s.registry.Get(req.PollID); !ok {
		respondError(w, http.StatusNotFound, "Poll not found")
		return
	}

	count, err := s.engagement.AddLike(r.Context(), req.PollID)
	if err != nil {
		s.log.WithError(err).Error("failed to record like")
		respondError(w, http.StatusInternalServerError, "Failed to record like")
		return
	}
	s.registry.Patch(req.PollID, func(p model.Poll) model.Poll {
		p.LikeCount = count
		return p
	})
	s.metrics.ReactionsProcessed.WithLabelValues("like").Inc()

	s.broadcast(event.PollLiked{PollID: req.PollID, LikeCount: count})

	respondJSON(w, http.StatusOK, map[string]any{
		"poll_id":    req.PollID,
		"like_count": count,
	})
}

func (s *Server) handleDislike(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := s.registry.Get(req.PollID); !ok {
		respondError(w, http.StatusNotFound, "Poll not found")
		return
	}

	count, err := s.engagement.AddDislike(r.Context(), req.PollID)
	if err != nil {
		s.log.WithError(err).Error("failed to record dislike")
		respondError(w, http.StatusInternalServerError, "Failed to record dislike")
		return
	}
	s.registry.Patch(req.PollID, func(p model.Poll) model.Poll {
		p.DislikeCount = count
		return p
	})
	s.metrics.ReactionsProcessed.WithLabelValues("dislike").Inc()

	s.broadcast(event.PollDisliked{PollID: req.PollID, DislikeCount: count})

	respondJSON(w, http.StatusOK, map[string]any{
		"poll_id":       req.PollID,
		"dislike_count": count,
	})
}

func (s *Server) handleOptionLike(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	poll, ok := s.registry.Get(req.PollID)
	if !ok {
		respondError(w, http.StatusNotFound, "Poll not found")
		return
	}
	if req.OptionIndex < 0 || req.OptionIndex >= len(poll.Options) {
		respondError(w, http.StatusBadRequest, "Invalid option index")
		return
	}

	counts, err := s.engagement.AddOptionLike(r.Context(), req.PollID, req.OptionIndex)
	if err != nil {
		s.log.WithError(err).Error("failed to record option like")
		respondError(w, http.StatusInternalServerError, "Failed to record option like")
		return
	}
	s.metrics.ReactionsProcessed.WithLabelValues("option_like").Inc()

	s.broadcast(event.OptionLiked{PollID: req.PollID, OptionLikeCounts: counts})

	respondJSON(w, http.StatusOK, map[string]any{
		"poll_id":            req.PollID,
		"option_index":       req.OptionIndex,
		"option_like_counts": counts,
	})
}

func (s *Server) handlePollStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	poll, ok := s.registry.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Poll not found")
		return
	}

	stats, err := s.engagement.Stats(r.Context(), id)
	if err != nil {
		s.log.WithError(err).Error("failed to read engagement stats")
		respondError(w, http.StatusInternalServerError, "Failed to load poll stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"poll_id":           id,
		"total_votes":       stats.VoteCount,
		"total_likes":       stats.LikeCount,
		"vote_distribution": stats.VoteDistribution,
		"created_at":        poll.CreatedAt,
	})
}
