package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid message %s: %v", data, err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	return Message{}
}

func TestPublishToUserReachesOnlyThatUser(t *testing.T) {
	hub := newTestHub(t)
	alice := &Client{Hub: hub, Send: make(chan []byte, SendBufferSize), Room: UserRoom("alice")}
	bob := &Client{Hub: hub, Send: make(chan []byte, SendBufferSize), Room: UserRoom("bob")}
	hub.Register <- alice
	hub.Register <- bob

	hub.PublishToUser("alice", "notification.created", map[string]string{"title": "Bienvenue"})

	msg := receive(t, alice)
	if msg.Type != "notification.created" || msg.RoomID != "user_alice" {
		t.Errorf("message = %+v", msg)
	}
	if payload, ok := msg.Payload.(map[string]any); !ok || payload["title"] != "Bienvenue" {
		t.Errorf("payload = %v", msg.Payload)
	}
	select {
	case data := <-bob.Send:
		t.Errorf("bob received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := newTestHub(t)
	c := &Client{Hub: hub, Send: make(chan []byte, 1), Room: UserRoom("carol")}
	hub.Register <- c
	hub.Unregister <- c
	// Unregister is processed before the next register.
	hub.Register <- &Client{Hub: hub, Send: make(chan []byte, 1), Room: UserRoom("dave")}

	if _, ok := <-c.Send; ok {
		t.Fatal("send channel still open after unregister")
	}
	if n := hub.ConnectedClients(UserRoom("carol")); n != 0 {
		t.Errorf("ConnectedClients = %d, want 0", n)
	}
}

func TestPublishWithoutListenersIsHarmless(t *testing.T) {
	hub := newTestHub(t)
	hub.PublishToUser("nobody", "notification.created", nil)
	hub.BroadcastToRoom("room", make(chan int)) // not JSON-encodable, dropped
}

func TestJoinAfterStop(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := &Client{Hub: hub, Send: make(chan []byte, 1), Room: UserRoom("late")}
	if !hub.Join(c) {
		t.Fatal("Join on a running hub returned false")
	}
	cancel()
	<-stopped

	if _, ok := <-c.Send; ok {
		t.Error("Send should be closed after the hub stops")
	}
	if hub.Join(&Client{Hub: hub, Send: make(chan []byte, 1), Room: UserRoom("late")}) {
		t.Error("Join on a stopped hub returned true")
	}
}
