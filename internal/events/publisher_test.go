package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeEnvelope(t *testing.T) {
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	body, err := Encode(ResultSubmitted, at, map[string]any{"resultId": "r1", "percentageScore": 80.5})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var env struct {
		Type       string         `json:"type"`
		OccurredAt time.Time      `json:"occurredAt"`
		Payload    map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != ResultSubmitted || !env.OccurredAt.Equal(at) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.Payload["resultId"] != "r1" {
		t.Fatalf("expected payload to carry result id, got %v", env.Payload)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), ResultSubmitted, nil); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("nop close: %v", err)
	}
}
