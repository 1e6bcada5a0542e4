package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

func receive(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestHubDeliversToJobSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	watcher := &Client{JobID: "job-1", Send: make(chan []byte, 8)}
	other := &Client{JobID: "job-2", Send: make(chan []byte, 8)}
	hub.Register(watcher)
	hub.Register(other)

	hub.BroadcastProgress(&model.Job{ID: "job-1", Status: model.JobStatusRunning, CurrentStep: "transcribing", ProcessedCount: 1})
	hub.BroadcastItem("job-1", model.ItemResult{Identifier: "panopto-uni-1", Title: "Lecture 1", Outcome: model.OutcomeProcessed})

	progress := receive(t, watcher)
	if progress["type"] != model.WSMessageTypeProgress || progress["processedCount"] != float64(1) {
		t.Errorf("unexpected progress message %v", progress)
	}
	item := receive(t, watcher)
	if item["type"] != model.WSMessageTypeItem {
		t.Errorf("unexpected item message %v", item)
	}

	select {
	case data := <-other.Send:
		t.Errorf("unrelated subscriber received %s", data)
	case <-time.After(50 * time.Millisecond):
	}

	hub.Unregister(watcher)
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers("job-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected no subscribers after unregister")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
