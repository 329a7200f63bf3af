package server

import (
	"net/http"

	"github.com/coder/websocket"

	"github.com/quickpoll/quickpoll/internal/pubsub"
)

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-origin policy is not enforced, matching the open CORS of the API
	})
	if err != nil {
		s.log.WithError(err).Debug("websocket accept failed")
		return
	}

	client := &pubsub.Client{
		Hub:  s.hub,
		Conn: conn,
		Send: make(chan []byte, 32),
	}
	s.hub.Register <- client

	go client.WritePump()
	client.ReadPump()
}
