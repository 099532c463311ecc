package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerrainJobEvent_Validate(t *testing.T) {
	tests := []struct {
		name        string
		event       TerrainJobEvent
		wantErr     bool
		description string
	}{
		{
			name: "valid slope job",
			event: TerrainJobEvent{
				JobID:   uuid.New(),
				Type:    JobTypeSlope,
				Request: json.RawMessage(`{"dem_id":"x"}`),
			},
			wantErr:     false,
			description: "Should accept a complete event",
		},
		{
			name: "missing job id",
			event: TerrainJobEvent{
				Type:    JobTypeDEM,
				Request: json.RawMessage(`{}`),
			},
			wantErr:     true,
			description: "Should reject nil job id",
		},
		{
			name: "unknown type",
			event: TerrainJobEvent{
				JobID:   uuid.New(),
				Type:    "hillshade",
				Request: json.RawMessage(`{}`),
			},
			wantErr:     true,
			description: "Should reject unknown job type",
		},
		{
			name: "empty request",
			event: TerrainJobEvent{
				JobID: uuid.New(),
				Type:  JobTypeProfile,
			},
			wantErr:     true,
			description: "Should reject missing request payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err, tt.description)
			} else {
				assert.NoError(t, err, tt.description)
			}
		})
	}
}

func TestParseJobType(t *testing.T) {
	for _, jt := range JobTypes {
		got, err := ParseJobType(string(jt))
		require.NoError(t, err)
		assert.Equal(t, jt, got)
	}

	_, err := ParseJobType("DEM")
	assert.Error(t, err)
}

func TestJobType_Stream(t *testing.T) {
	assert.Equal(t, StreamTerrainDEM, JobTypeDEM.Stream())
	assert.Equal(t, StreamTerrainSlope, JobTypeSlope.Stream())
	assert.Equal(t, StreamTerrainAspect, JobTypeAspect.Stream())
	assert.Equal(t, StreamTerrainProfile, JobTypeProfile.Stream())
}

func TestJob_Lifecycle(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	job := NewJob(JobTypeDEM, json.RawMessage(`{}`), created)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.False(t, job.Status.Terminal())

	started := created.Add(time.Second)
	job.Start(started)
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.StartedAt)

	resultID := uuid.New()
	job.Complete(resultID, started.Add(1500*time.Millisecond))
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.True(t, job.Status.Terminal())
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, resultID, *job.ResultID)
	require.NotNil(t, job.ProcessingTimeMS)
	assert.Equal(t, int64(1500), *job.ProcessingTimeMS)
}

func TestJob_Fail(t *testing.T) {
	now := time.Now()
	job := NewJob(JobTypeSlope, json.RawMessage(`{}`), now)

	// Arrange: задача не стартовала, времени обработки нет
	job.Fail("input: bad dem", now)

	assert.Equal(t, JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "input: bad dem", *job.ErrorMessage)
	assert.Nil(t, job.ProcessingTimeMS)
	assert.NotNil(t, job.CompletedAt)
}
