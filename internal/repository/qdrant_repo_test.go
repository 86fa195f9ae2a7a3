package repository

import (
	"testing"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
)

// TestPointIDDeterministic verifies that the same input always produces the same UUID
func TestPointIDDeterministic(t *testing.T) {
	testCases := []struct {
		name       string
		collection string
		chunkID    string
	}{
		{name: "basic test", collection: "video_a", chunkID: "video_a_0"},
		{name: "different collection", collection: "video_b", chunkID: "video_a_0"},
		{name: "different chunk", collection: "video_a", chunkID: "video_a_1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id1 := PointID(tc.collection, tc.chunkID)
			id2 := PointID(tc.collection, tc.chunkID)
			if id1 != id2 {
				t.Errorf("PointID mismatch: first=%s, second=%s", id1, id2)
			}
			if _, err := uuid.Parse(id1); err != nil {
				t.Errorf("PointID %q is not a UUID: %v", id1, err)
			}
		})
	}
}

// TestPointIDUniqueness verifies that different inputs produce different UUIDs
func TestPointIDUniqueness(t *testing.T) {
	seen := map[string]string{}
	inputs := [][2]string{
		{"video_a", "0"},
		{"video_a", "1"},
		{"video_b", "0"},
		// Separator must keep "a:b"+"c" distinct from "a"+"b:c".
		{"video_a:0", "1"},
	}
	for _, in := range inputs {
		id := PointID(in[0], in[1])
		key := in[0] + "|" + in[1]
		if prev, ok := seen[id]; ok {
			t.Errorf("PointID collision between %s and %s", prev, key)
		}
		seen[id] = key
	}
}

func TestParseMatchSeparatesPayload(t *testing.T) {
	rec := VectorRecord{
		ID:       "video_a_2",
		Text:     "Cats are mammals.",
		Metadata: map[string]string{"chunk_index": "2", "video_id": "a"},
	}
	payload := buildPayload(rec)
	if len(payload) != 4 {
		t.Fatalf("payload has %d keys, want 4", len(payload))
	}

	m := parseMatch(&pb.ScoredPoint{Payload: payload, Score: 0.9})
	if m.ID != rec.ID || m.Text != rec.Text {
		t.Errorf("parseMatch() = %+v, want ID %q and text %q", m, rec.ID, rec.Text)
	}
	if m.Metadata["chunk_index"] != "2" || m.Metadata["video_id"] != "a" {
		t.Errorf("metadata = %v", m.Metadata)
	}
	if _, ok := m.Metadata[payloadText]; ok {
		t.Error("text leaked into metadata")
	}
}
