package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types pushed to subscribers
const (
	EventStudyPublished  = "study.published"
	EventResponseCreated = "response.created"
	EventReactionChanged = "reaction.changed"
	EventResponseHidden  = "response.hidden"
	EventPong            = "pong"
	EventError           = "error"
)

// AllStudies is the room every subscriber of the study list joins
const AllStudies = "studies"

// StudyRoom names the room for one study's live feed
func StudyRoom(studyID int64) string {
	return fmt.Sprintf("study:%d", studyID)
}

// Event is the JSON frame sent to clients
type Event struct {
	Type    string    `json:"type"`
	StudyID int64     `json:"study_id,omitempty"`
	Data    any       `json:"data,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// inbound is a frame sent by a client
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(e Event) ([]byte, error) {
	if e.SentAt.IsZero() {
		e.SentAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}
	return data, nil
}
