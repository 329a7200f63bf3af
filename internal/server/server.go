// Package server implements the poll service: the HTTP CRUD and
// engagement surface, the sports proxy, and the push channel endpoint
// that broadcasts every state change to all connected clients.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/quickpoll/quickpoll/internal/event"
	"github.com/quickpoll/quickpoll/internal/metrics"
	"github.com/quickpoll/quickpoll/internal/pubsub"
	"github.com/quickpoll/quickpoll/internal/store"
)

// EventMirror republishes broadcast frames to a secondary transport
// (Kafka in production). Optional.
type EventMirror interface {
	Publish(ctx context.Context, key string, frame []byte) error
}

type Server struct {
	registry   *store.PollStore
	engagement store.EngagementStore
	hub        *pubsub.Hub
	mirror     EventMirror
	metrics    *metrics.ServerMetrics
	sports     *sportsProxy
	log        *logrus.Entry
}

func New(engagement store.EngagementStore, hub *pubsub.Hub, mirror EventMirror, m *metrics.ServerMetrics) *Server {
	s := &Server{
		registry:   store.NewPollStore(),
		engagement: engagement,
		hub:        hub,
		mirror:     mirror,
		metrics:    m,
		sports:     newSportsProxy(),
		log:        logrus.WithField("component", "server"),
	}
	hub.OnCount(func(n int) {
		m.ClientsConnected.Set(float64(n))
	})
	return s
}

// Router mounts the full API surface. extra handlers (such as the
// prometheus endpoint) can be attached by the caller afterwards.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/ws", s.handleWebsocket)

	r.Route("/api", func(r chi.Router) {
		r.Route("/polls", func(r chi.Router) {
			r.Get("/", s.handleListPolls)
			r.Post("/", s.handleCreatePoll)
			r.Get("/{id}", s.handleGetPoll)
			r.Delete("/{id}", s.handleDeletePoll)
			r.Get("/{id}/stats", s.handlePollStats)
		})
		r.Post("/votes", s.handleVote)
		r.Post("/likes", s.handleLike)
		r.Post("/dislikes", s.handleDislike)
		r.Post("/option-likes", s.handleOptionLike)

		r.Route("/sports", func(r chi.Router) {
			r.Get("/updates", s.handleSportsUpdates)
			r.Get("/game-data/{id}", s.handleGameData)
			r.Get("/game-details/{id}", s.handleGameDetails)
		})
	})

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "QuickPoll API is running",
		"version": "1.0.0",
	})
}

// broadcast fans an event out to every push channel client and, when
// configured, mirrors it to the secondary transport. Broadcast happens
// before the caller finishes mutating server state for deletes, matching
// the original ordering.
func (s *Server) broadcast(ev event.Event) {
	frame, err := event.Encode(ev)
	if err != nil {
		s.log.WithError(err).Error("failed to encode event")
		return
	}

	start := time.Now()
	s.hub.Broadcast <- frame
	s.metrics.BroadcastTime.Observe(time.Since(start).Seconds())
	s.metrics.Broadcasts.WithLabelValues(event.Type(ev)).Inc()

	if s.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mirror.Publish(ctx, event.PollID(ev), frame); err != nil {
			s.log.WithError(err).Warn("event mirror publish failed")
		}
	}
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to write response")
	}
}

func respondError(w http.ResponseWriter, code int, detail string) {
	respondJSON(w, code, map[string]string{"detail": detail})
}
