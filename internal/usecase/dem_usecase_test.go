package usecase_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	apperrors "github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/dem"
	"github.com/terrain-microservice/internal/usecase"
	"github.com/terrain-microservice/internal/usecase/dto"
)

type demMocks struct {
	contours  *MockContourRepository
	dems      *MockDEMRepository
	elevation *MockElevationSource
	cache     *MockCacheRepository
}

func newDEMUseCase() (*usecase.DEMUseCase, demMocks) {
	m := demMocks{
		contours:  &MockContourRepository{},
		dems:      &MockDEMRepository{},
		elevation: &MockElevationSource{},
		cache:     &MockCacheRepository{},
	}
	uc := usecase.NewDEMUseCase(m.contours, m.dems, m.elevation, m.cache, terrain.DefaultConfig(), zap.NewNop())
	return uc, m
}

func TestDEMUseCase_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("inline contours report progress and store the grid", func(t *testing.T) {
		uc, m := newDEMUseCase()
		var stored *domain.DEM
		m.dems.On("Create", ctx, mock.AnythingOfType("*domain.DEM"), mock.AnythingOfType("[]uint8")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.DEM) }).
			Return(nil)

		var progress []int
		resp, err := uc.Generate(ctx, dto.GenerateDEMRequest{
			ProjectID:  "project-1",
			Contours:   rampContours(),
			Bounds:     demBounds,
			Resolution: 50,
		}, func(p int) { progress = append(progress, p) })

		require.NoError(t, err)
		assert.Equal(t, []int{0, 20, 70, 85, 95}, progress)
		require.NotNil(t, stored)
		assert.Same(t, stored, resp.DEM)
		assert.Equal(t, domain.DEMSourceContours, stored.Source)
		assert.Equal(t, "project-1", *stored.ProjectID)
		assert.Equal(t, "linear", *stored.Interpolation)
		assert.Equal(t, 50.0, *stored.Resolution)
		require.NotNil(t, stored.RMSE)
		assert.Less(t, *stored.RMSE, 2.0)
		assert.GreaterOrEqual(t, stored.MinElevation, 100.0)
		assert.LessOrEqual(t, stored.MaxElevation, 140.0)
		assert.Equal(t, resp.Validation.RMSE, *stored.RMSE)
		m.contours.AssertNotCalled(t, "GetByProject", mock.Anything, mock.Anything)
		m.dems.AssertExpectations(t)
	})

	t.Run("contours by id", func(t *testing.T) {
		uc, m := newDEMUseCase()
		var contours []dem.Contour
		for i, c := range rampContours() {
			contours = append(contours, dem.Contour{ID: string(rune('a' + i)), Elevation: c.Elevation, Line: c.Line()})
		}
		m.contours.On("GetByIDs", ctx, []int64{1, 2, 3, 4, 5}).Return(contours, nil)
		m.dems.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)

		resp, err := uc.Generate(ctx, dto.GenerateDEMRequest{
			ContourIDs: []int64{1, 2, 3, 4, 5},
			Bounds:     demBounds,
			Resolution: 50,
		}, nil)

		require.NoError(t, err)
		assert.Nil(t, resp.DEM.ProjectID)
		m.contours.AssertExpectations(t)
	})

	t.Run("project without contours", func(t *testing.T) {
		uc, m := newDEMUseCase()
		m.contours.On("GetByProject", ctx, "empty").Return([]dem.Contour{}, nil)

		_, err := uc.Generate(ctx, dto.GenerateDEMRequest{ProjectID: "empty", Bounds: demBounds, Resolution: 50}, nil)

		assert.ErrorIs(t, err, terrain.ErrInput)
		assert.Contains(t, err.Error(), "no contour data found")
		m.dems.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("quality gate rejects the grid", func(t *testing.T) {
		uc, m := newDEMUseCase()

		_, err := uc.Generate(ctx, dto.GenerateDEMRequest{
			ProjectID:  "p",
			Contours:   rampContours(),
			Bounds:     demBounds,
			Resolution: 50,
			Options:    &dto.AnalysisOverrides{RMSEThreshold: ptr(0.0001)},
		}, nil)

		assert.ErrorIs(t, err, terrain.ErrQualityGate)
		m.dems.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid request", func(t *testing.T) {
		uc, _ := newDEMUseCase()

		_, err := uc.Generate(ctx, dto.GenerateDEMRequest{ProjectID: "p", Bounds: demBounds}, nil)

		require.Error(t, err)
		assert.Equal(t, "INVALID_REQUEST", apperrors.FromTerrain(err).Code)
	})

	t.Run("even smoothing kernel rejected", func(t *testing.T) {
		uc, _ := newDEMUseCase()

		_, err := uc.Generate(ctx, dto.GenerateDEMRequest{
			ProjectID:  "p",
			Bounds:     demBounds,
			Resolution: 50,
			Options:    &dto.AnalysisOverrides{SmoothingKernelSize: ptr(4)},
		}, nil)

		require.Error(t, err)
		assert.Equal(t, "INVALID_REQUEST", apperrors.FromTerrain(err).Code)
	})
}

func TestDEMUseCase_ImportASCII(t *testing.T) {
	ctx := context.Background()
	uc, m := newDEMUseCase()
	var stored *domain.DEM
	m.dems.On("Create", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.DEM) }).
		Return(nil)

	grid := "ncols 3\nnrows 2\nxllcorner 2.0\nyllcorner 41.0\ncellsize 0.001\nNODATA_value -9999\n1 2 3\n4 5 -9999\n"
	resp, err := uc.ImportASCII(ctx, "project-1", strings.NewReader(grid))

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, resp.DEM, stored)
	assert.Nil(t, resp.Validation)
	assert.Equal(t, domain.DEMSourceASCII, stored.Source)
	assert.Equal(t, 3, stored.Width)
	assert.Equal(t, 2, stored.Height)
	assert.Equal(t, 1.0, stored.MinElevation)
	assert.Equal(t, 5.0, stored.MaxElevation)
	assert.Equal(t, 3.0, stored.AvgElevation)
	assert.InDelta(t, 41.002, stored.MaxLat, 1e-9)

	_, err = uc.ImportASCII(ctx, "", strings.NewReader("ncols 2\n"))
	assert.ErrorIs(t, err, terrain.ErrInput)
}

func TestDEMUseCase_ImportTerrainRGB(t *testing.T) {
	ctx := context.Background()
	uc, m := newDEMUseCase()
	g := eastRamp(t)
	bounds := g.Bounds()
	m.elevation.On("FetchGrid", ctx, bounds, 14).Return(g, nil)
	m.dems.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)

	resp, err := uc.ImportTerrainRGB(ctx, dto.TerrainRGBRequest{Bounds: bounds, Zoom: 14})

	require.NoError(t, err)
	assert.Equal(t, domain.DEMSourceTerrainRGB, resp.DEM.Source)
	assert.Equal(t, 100.0, resp.DEM.MinElevation)
	assert.Equal(t, 119.0, resp.DEM.MaxElevation)

	_, err = uc.ImportTerrainRGB(ctx, dto.TerrainRGBRequest{Bounds: bounds, Zoom: 16})
	require.Error(t, err)
	m.elevation.AssertNumberOfCalls(t, "FetchGrid", 1)

	m.elevation.On("FetchGrid", ctx, bounds, 3).Return(nil, apperrors.ErrElevationSourceUnavailable)
	_, err = uc.ImportTerrainRGB(ctx, dto.TerrainRGBRequest{Bounds: bounds, Zoom: 3})
	assert.ErrorIs(t, err, apperrors.ErrElevationSourceUnavailable)
}

func TestDEMUseCase_GetAndExport(t *testing.T) {
	ctx := context.Background()
	uc, m := newDEMUseCase()
	g := eastRamp(t)
	id := expectStoredDEM(t, m.dems, g)
	missing := uuid.New()
	m.dems.On("GetByID", ctx, missing).Return(nil, nil)

	record, err := uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)

	_, err = uc.Get(ctx, missing)
	assert.ErrorIs(t, err, apperrors.ErrDEMNotFound)

	var buf bytes.Buffer
	require.NoError(t, uc.ExportASCII(ctx, id, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "ncols 20\nnrows 20\n"))

	assert.ErrorIs(t, uc.ExportASCII(ctx, missing, &buf), apperrors.ErrDEMNotFound)
}

func TestDEMUseCase_PurgeCache(t *testing.T) {
	ctx := context.Background()
	uc, m := newDEMUseCase()
	id := expectStoredDEM(t, m.dems, eastRamp(t))
	m.cache.On("DeleteByPrefix", ctx, "terrain:"+id.String()+":").Return(int64(3), nil)

	n, err := uc.PurgeCache(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	m.cache.AssertExpectations(t)
}

// Line у изолинии из запроса сохраняет порядок [lng, lat]
func TestContourInput_Line(t *testing.T) {
	c := dto.ContourInput{Coordinates: [][2]float64{{2.1, 41.3}, {2.2, 41.4}}}
	assert.Equal(t, orb.LineString{{2.1, 41.3}, {2.2, 41.4}}, c.Line())
}
