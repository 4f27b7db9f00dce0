package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"iskolar.org/internal/stream"
)

func TestEventsFeedIsMasterOnly(t *testing.T) {
	env := newTestEnv(t)

	anon := env.client().get("/v1/events")
	anon.Body.Close()
	wantStatus(t, anon, http.StatusUnauthorized)

	c := env.client()
	c.mustLogin(adminEmail, adminPass)
	denied := c.get("/v1/events")
	defer denied.Body.Close()
	wantStatus(t, denied, http.StatusForbidden)
}

func TestEventsFeedDeliversActivity(t *testing.T) {
	env := newTestEnv(t)

	watcher := env.client()
	watcher.mustLogin(masterEmail, masterPass)
	feed := watcher.get("/v1/events")
	defer feed.Body.Close()
	wantStatus(t, feed, http.StatusOK)
	if ct := feed.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	// Give up if the stream stalls.
	timer := time.AfterFunc(5*time.Second, func() { feed.Body.Close() })
	defer timer.Stop()

	scanner := bufio.NewScanner(feed.Body)
	if !scanner.Scan() {
		t.Fatalf("stream closed before greeting: %v", scanner.Err())
	}
	if line := scanner.Text(); !strings.HasPrefix(line, ":") {
		t.Fatalf("first line = %q, want a comment", line)
	}

	// With the subscription live, make some noise.
	actor := env.client()
	actor.mustLogin(masterEmail, masterPass)
	created := actor.post("/v1/students", studentRequest{
		FirstName: "Fe",
		LastName:  "Lopez",
		Barangay:  adminBarangay,
	})
	created.Body.Close()
	wantStatus(t, created, http.StatusCreated)

	var evt stream.Event
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.Event == "student.created" {
			break
		}
	}
	if evt.Event != "student.created" {
		t.Fatalf("never saw student.created, last event %q (scan err: %v)", evt.Event, scanner.Err())
	}
	if evt.ActorID != env.master.ID {
		t.Errorf("actor_id = %q, want %q", evt.ActorID, env.master.ID)
	}
	if evt.Fields["barangay"] != adminBarangay {
		t.Errorf("fields.barangay = %v, want %q", evt.Fields["barangay"], adminBarangay)
	}
}
