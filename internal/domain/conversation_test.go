package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPairKey(t *testing.T) {
	if got, want := PairKey("user-b", "user-a"), "user-a:user-b"; got != want {
		t.Fatalf("PairKey = %q, want %q", got, want)
	}
	if PairKey("user-a", "user-b") != PairKey("user-b", "user-a") {
		t.Fatalf("expected PairKey to be order independent")
	}
}

func TestHasParticipant(t *testing.T) {
	conv := Conversation{ParticipantA: "user-a", ParticipantB: "user-b"}
	if !conv.HasParticipant("user-a") || !conv.HasParticipant("user-b") {
		t.Fatalf("expected both participants recognized")
	}
	if conv.HasParticipant("user-c") {
		t.Fatalf("expected outsider rejected")
	}
}

func TestMessageResolve(t *testing.T) {
	msg := Message{
		ID:             "msg-1",
		ConversationID: "conv-1",
		SenderID:       "user-a",
		Text:           "hola",
		MediaURL:       "https://cdn.example.com/pic.jpg",
		MediaType:      "image",
		CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	wire := msg.Resolve(UserSummary{ID: "user-a", Name: "alice", Email: "alice@example.com"})

	if wire.SenderName != "alice" || wire.SenderEmail != "alice@example.com" {
		t.Fatalf("expected sender resolved, got %+v", wire)
	}
	if wire.ID != msg.ID || wire.Text != msg.Text || wire.MediaURL != msg.MediaURL {
		t.Fatalf("expected message fields carried over, got %+v", wire)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"conversationId"`, `"senderId"`, `"senderName"`, `"senderEmail"`, `"mediaUrl"`, `"mediaType"`, `"createdAt"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in wire encoding, got %s", key, data)
		}
	}
}

func TestUserSummaryOmitsPasswordHash(t *testing.T) {
	user := User{ID: "user-a", Name: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "hash") {
		t.Fatalf("password hash leaked: %s", data)
	}
}
