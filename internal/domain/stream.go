package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Stream names
const (
	StreamTerrainDEM     = "stream:terrain:dem"
	StreamTerrainSlope   = "stream:terrain:slope"
	StreamTerrainAspect  = "stream:terrain:aspect"
	StreamTerrainProfile = "stream:terrain:profile"
	StreamTerrainDone    = "stream:terrain:done"
)

// TerrainJobEvent - входящее событие на выполнение задачи
type TerrainJobEvent struct {
	JobID   uuid.UUID       `json:"job_id"`
	Type    JobType         `json:"type"`
	Request json.RawMessage `json:"request"`
}

// Validate проверяет обязательные поля события
func (e *TerrainJobEvent) Validate() error {
	if e.JobID == uuid.Nil {
		return fmt.Errorf("job_id is required")
	}
	if _, err := ParseJobType(string(e.Type)); err != nil {
		return err
	}
	if len(e.Request) == 0 {
		return fmt.Errorf("request is required")
	}
	return nil
}

// TerrainJobDoneEvent - результат выполнения задачи
type TerrainJobDoneEvent struct {
	JobID    uuid.UUID  `json:"job_id"`
	Type     JobType    `json:"type"`
	Status   JobStatus  `json:"status"`
	ResultID *uuid.UUID `json:"result_id,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
