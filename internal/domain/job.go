package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType - тип фоновой задачи анализа рельефа
type JobType string

const (
	JobTypeDEM     JobType = "dem"
	JobTypeSlope   JobType = "slope"
	JobTypeAspect  JobType = "aspect"
	JobTypeProfile JobType = "profile"
)

// JobTypes перечисляет все поддерживаемые типы задач
var JobTypes = []JobType{JobTypeDEM, JobTypeSlope, JobTypeAspect, JobTypeProfile}

// ParseJobType проверяет строку из URL или события
func ParseJobType(s string) (JobType, error) {
	for _, t := range JobTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

// Stream возвращает имя стрима, в который публикуются задачи этого типа
func (t JobType) Stream() string {
	return "stream:terrain:" + string(t)
}

// JobStatus - состояние задачи
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal сообщает, что задача больше не изменится
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job - задача анализа, выполняемая воркером
type Job struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Type             JobType         `json:"type" db:"job_type"`
	Status           JobStatus       `json:"status" db:"status"`
	Progress         int             `json:"progress" db:"progress"`
	Request          json.RawMessage `json:"request" db:"request"`
	ResultID         *uuid.UUID      `json:"result_id,omitempty" db:"result_id"`
	ErrorMessage     *string         `json:"error_message,omitempty" db:"error_message"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	StartedAt        *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	ProcessingTimeMS *int64          `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
}

// NewJob создает задачу в статусе pending
func NewJob(t JobType, request json.RawMessage, now time.Time) *Job {
	return &Job{
		ID:        uuid.New(),
		Type:      t,
		Status:    JobStatusPending,
		Request:   request,
		CreatedAt: now,
	}
}

// Start переводит задачу в processing
func (j *Job) Start(now time.Time) {
	j.Status = JobStatusProcessing
	j.Progress = 0
	j.StartedAt = &now
	j.CompletedAt = nil
	j.ErrorMessage = nil
	j.ProcessingTimeMS = nil
}

// Complete фиксирует успешное завершение и ссылку на результат
func (j *Job) Complete(resultID uuid.UUID, now time.Time) {
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.ResultID = &resultID
	j.finish(now)
}

// Fail фиксирует ошибку; результат, если был, сохраняется (например метрики DEM)
func (j *Job) Fail(msg string, now time.Time) {
	j.Status = JobStatusFailed
	j.ErrorMessage = &msg
	j.finish(now)
}

func (j *Job) finish(now time.Time) {
	j.CompletedAt = &now
	if j.StartedAt != nil {
		ms := now.Sub(*j.StartedAt).Milliseconds()
		j.ProcessingTimeMS = &ms
	}
}
