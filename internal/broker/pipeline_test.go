package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"poll-service/internal/poll"
	"poll-service/internal/ws"
)

type hubEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func nextHubMessage(t *testing.T, client *ws.Client) hubEnvelope {
	t.Helper()
	select {
	case data, ok := <-client.Send:
		if !ok {
			t.Fatal("Send channel closed")
		}
		var msg hubEnvelope
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Malformed hub message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for hub message")
	}
	return hubEnvelope{}
}

// Applied vote flows all the way to a subscribed client; the redelivery of
// the same event produces no second push.
func TestVotePipelineEndToEnd(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	viewer := ws.NewClient("viewer", nil)
	select {
	case hub.Register <- viewer:
	case <-time.After(time.Second):
		t.Fatal("Timed out registering viewer")
	}
	hub.Join(viewer, 1)

	if msg := nextHubMessage(t, viewer); msg.Type != "viewers-update" {
		t.Fatalf("Expected viewers-update on join, got %s", msg.Type)
	}

	store := newMemStore(testPoll(1))
	handler := newTestHandler(store, hub, &memDeadLetter{})

	event := voteMessage(t, &poll.VoteEvent{PollID: 1, OptionID: 10, UserID: 7})
	handler.processVote(context.Background(), event)

	msg := nextHubMessage(t, viewer)
	if msg.Type != "poll-update" {
		t.Fatalf("Expected poll-update, got %s", msg.Type)
	}
	var snapshot poll.PollResult
	if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
		t.Fatalf("Malformed poll-update payload: %v", err)
	}
	if snapshot.TotalVoteCount != 1 || snapshot.Options[0].Percentage != "100.00" {
		t.Errorf("Unexpected snapshot: %+v", snapshot)
	}

	// Redelivery of the applied event is absorbed without a second push.
	handler.processVote(context.Background(), event)

	select {
	case data := <-viewer.Send:
		t.Errorf("Duplicate vote produced a push: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
	if got := store.total(1); got != 1 {
		t.Errorf("Duplicate changed the tally: %d", got)
	}
}
