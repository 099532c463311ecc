package usecase_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	apperrors "github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/profile"
	"github.com/terrain-microservice/internal/usecase"
	"github.com/terrain-microservice/internal/usecase/dto"
)

func newProfileUseCase() (*usecase.ProfileUseCase, *MockDEMRepository, *MockProfileRepository) {
	dems := &MockDEMRepository{}
	profiles := &MockProfileRepository{}
	return usecase.NewProfileUseCase(dems, profiles, terrain.DefaultConfig(), zap.NewNop()), dems, profiles
}

// с запада на восток по средней широте сетки eastRamp
var eastwardLine = [][2]float64{{2.0002, 41.001}, {2.0018, 41.001}}

func TestProfileUseCase_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("uphill line without storing", func(t *testing.T) {
		uc, dems, profiles := newProfileUseCase()
		id := expectStoredDEM(t, dems, eastRamp(t))

		resp, err := uc.Analyze(ctx, dto.ProfileRequest{DEMID: id.String(), Coordinates: eastwardLine})

		require.NoError(t, err)
		assert.Nil(t, resp.ProfileID)
		assert.Empty(t, resp.Dropped)
		require.Greater(t, len(resp.Points), 20)
		assert.Zero(t, resp.Points[0].Distance)
		for i := 1; i < len(resp.Points); i++ {
			assert.Greater(t, resp.Points[i].Elevation, resp.Points[i-1].Elevation)
			assert.InDelta(t, 11.9, resp.Points[i].Grade, 0.1)
		}
		assert.InDelta(t, 134.3, resp.Stats.TotalDistance, 0.5)
		assert.InDelta(t, 100.0, resp.Stats.ExcessiveGradePercent, 1e-6)
		assert.Zero(t, resp.Stats.ElevationLoss)
		profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("stored profile", func(t *testing.T) {
		uc, dems, profiles := newProfileUseCase()
		id := expectStoredDEM(t, dems, eastRamp(t))
		var saved *domain.Profile
		profiles.On("Create", ctx, mock.Anything).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.Profile) }).
			Return(nil)

		resp, err := uc.Analyze(ctx, dto.ProfileRequest{
			DEMID:       id.String(),
			Coordinates: eastwardLine,
			Store:       true,
			Options:     &dto.AnalysisOverrides{SampleInterval: ptr(20.0), MaxGradeThreshold: ptr(15.0)},
		})

		require.NoError(t, err)
		require.NotNil(t, resp.ProfileID)
		require.NotNil(t, saved)
		assert.Equal(t, *resp.ProfileID, saved.ID)
		assert.Equal(t, id, saved.DEMID)
		assert.JSONEq(t, `{"type":"LineString","coordinates":[[2.0002,41.001],[2.0018,41.001]]}`, string(saved.Line))
		assert.Len(t, resp.Points, 8)
		assert.Zero(t, resp.Stats.ExcessiveGradePercent)

		var points []profile.Point
		require.NoError(t, json.Unmarshal(saved.Points, &points))
		assert.Equal(t, resp.Points, points)
	})

	t.Run("samples outside the grid are dropped", func(t *testing.T) {
		uc, dems, _ := newProfileUseCase()
		id := expectStoredDEM(t, dems, eastRamp(t))

		resp, err := uc.Analyze(ctx, dto.ProfileRequest{
			DEMID:       id.String(),
			Coordinates: [][2]float64{{2.0002, 41.001}, {2.0030, 41.001}},
		})

		require.NoError(t, err)
		require.NotEmpty(t, resp.Dropped)
		assert.Equal(t, "bounds", resp.Dropped[0].Reason)
		assert.Less(t, resp.Stats.TotalDistance, 160.0)
	})

	t.Run("single point line", func(t *testing.T) {
		uc, _, _ := newProfileUseCase()

		_, err := uc.Analyze(ctx, dto.ProfileRequest{DEMID: uuid.NewString(), Coordinates: [][2]float64{{2, 41}}})

		require.Error(t, err)
		assert.Equal(t, "INVALID_REQUEST", apperrors.FromTerrain(err).Code)
	})

	t.Run("line entirely outside the grid", func(t *testing.T) {
		uc, dems, _ := newProfileUseCase()
		id := expectStoredDEM(t, dems, eastRamp(t))

		_, err := uc.Analyze(ctx, dto.ProfileRequest{
			DEMID:       id.String(),
			Coordinates: [][2]float64{{3.0, 42.0}, {3.001, 42.0}},
		})

		assert.ErrorIs(t, err, terrain.ErrComputation)
	})
}

func TestProfileUseCase_ExportCSV(t *testing.T) {
	ctx := context.Background()
	uc, _, profiles := newProfileUseCase()
	id := uuid.New()
	points, err := json.Marshal([]profile.Point{
		{Distance: 0, Elevation: 100, Grade: 0, Lat: 41.001, Lng: 2.0002},
		{Distance: 5, Elevation: 100.596, Grade: 11.923, Lat: 41.001, Lng: 2.00026},
	})
	require.NoError(t, err)
	profiles.On("GetByID", ctx, id).Return(&domain.Profile{ID: id, Points: points}, nil)
	missing := uuid.New()
	profiles.On("GetByID", ctx, missing).Return(nil, nil)

	var buf bytes.Buffer
	require.NoError(t, uc.ExportCSV(ctx, id, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "distance_m,elevation_m,grade_percent,latitude,longitude", lines[0])
	assert.Equal(t, "5,100.6,11.92,41.001,2.00026", lines[2])

	assert.ErrorIs(t, uc.ExportCSV(ctx, missing, &buf), apperrors.ErrProfileNotFound)
}

func TestProfileUseCase_ExportJSON(t *testing.T) {
	ctx := context.Background()
	uc, _, profiles := newProfileUseCase()
	id := uuid.New()
	points, err := json.Marshal([]profile.Point{
		{Distance: 0, Elevation: 100, Lat: 41.001, Lng: 2.0002},
		{Distance: 5, Elevation: 101, Grade: 20, Lat: 41.001, Lng: 2.00026},
	})
	require.NoError(t, err)
	stats, err := json.Marshal(profile.Stats{TotalDistance: 5, ElevationGain: 1, MaxGradeUphill: 20})
	require.NoError(t, err)
	profiles.On("GetByID", ctx, id).Return(&domain.Profile{ID: id, Points: points, Stats: stats}, nil)
	broken := uuid.New()
	profiles.On("GetByID", ctx, broken).Return(&domain.Profile{ID: broken, Points: points, Stats: json.RawMessage(`[`)}, nil)

	var buf bytes.Buffer
	require.NoError(t, uc.ExportJSON(ctx, id, &buf))

	var got profile.Profile
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Points, 2)
	assert.Equal(t, 101.0, got.Points[1].Elevation)
	assert.Equal(t, 5.0, got.Stats.TotalDistance)
	assert.Equal(t, 20.0, got.Stats.MaxGradeUphill)

	assert.ErrorIs(t, uc.ExportJSON(ctx, broken, &buf), apperrors.ErrInternalServer)
}
