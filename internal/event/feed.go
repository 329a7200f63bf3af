package event

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// Feed is one live push channel. Read blocks until the next raw frame
// arrives or the channel dies; the connection manager owns the feed and
// redials through a Dialer when Read fails.
type Feed interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a fresh feed. Implementations exist for the websocket
// push endpoint and for a Kafka event topic.
type Dialer func(ctx context.Context) (Feed, error)

type websocketFeed struct {
	conn *websocket.Conn
}

// DialWebsocket connects to the server's /ws push endpoint.
func DialWebsocket(ctx context.Context, url string) (Feed, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %v", url, err)
	}
	return &websocketFeed{conn: conn}, nil
}

// WebsocketDialer binds DialWebsocket to a URL.
func WebsocketDialer(url string) Dialer {
	return func(ctx context.Context) (Feed, error) {
		return DialWebsocket(ctx, url)
	}
}

func (f *websocketFeed) Read(ctx context.Context) ([]byte, error) {
	_, msg, err := f.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (f *websocketFeed) Close() error {
	return f.conn.Close(websocket.StatusNormalClosure, "client exit")
}
