package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

type fakeSubmitter struct {
	failures   int
	addCalls   int
	reconnects int
}

func (s *fakeSubmitter) AddLink(ctx context.Context, url, packageName string) error {
	s.addCalls++
	if s.addCalls <= s.failures {
		return errors.New("api failure")
	}
	return nil
}

func (s *fakeSubmitter) Reconnect(ctx context.Context) error {
	s.reconnects++
	return nil
}

func remoteFile() roomapi.FileEvent {
	return roomapi.FileEvent{
		URL:  "https://example.org/get/abc/test.zip",
		Name: "test.zip",
		Room: "demo",
	}
}

func TestRemoteAPISucceedsOnThirdAttempt(t *testing.T) {
	sub := &fakeSubmitter{failures: 2}
	r := NewRemoteAPI(sub)

	if err := r.Dispatch(context.Background(), remoteFile(), "demo", true); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if sub.addCalls != 3 {
		t.Errorf("expected 3 submit calls, got %d", sub.addCalls)
	}
	if sub.reconnects != 2 {
		t.Errorf("expected a reconnect after each failed attempt, got %d", sub.reconnects)
	}
}

func TestRemoteAPIGivesUpAfterThreeAttempts(t *testing.T) {
	sub := &fakeSubmitter{failures: 5}
	r := NewRemoteAPI(sub)

	err := r.Dispatch(context.Background(), remoteFile(), "demo", true)
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if sub.addCalls != 3 {
		t.Errorf("expected exactly 3 submit calls, got %d", sub.addCalls)
	}
	// No reconnect after the final attempt.
	if sub.reconnects != 2 {
		t.Errorf("expected 2 reconnects, got %d", sub.reconnects)
	}
}

func TestRemoteAPIFirstTrySkipsReconnect(t *testing.T) {
	sub := &fakeSubmitter{}
	r := NewRemoteAPI(sub)

	if err := r.Dispatch(context.Background(), remoteFile(), "demo", true); err != nil {
		t.Fatal(err)
	}
	if sub.addCalls != 1 || sub.reconnects != 0 {
		t.Errorf("expected a single clean submit, got calls=%d reconnects=%d", sub.addCalls, sub.reconnects)
	}
}
