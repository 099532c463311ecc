package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/repository/postgres/testhelpers"
	"github.com/terrain-microservice/internal/terrain/raster"
)

type TerrainRepositorySuite struct {
	suite.Suite
	tdb       *testhelpers.TestDB
	jobs      repository.JobRepository
	dems      repository.DEMRepository
	analyses  repository.AnalysisRepository
	profiles  repository.ProfileRepository
	contours  repository.ContourRepository
	ctx       context.Context
	projectID string
}

func TestTerrainRepositorySuite(t *testing.T) {
	suite.Run(t, new(TerrainRepositorySuite))
}

func (s *TerrainRepositorySuite) SetupSuite() {
	s.tdb = testhelpers.SetupTestDB(s.T())
	s.ctx = context.Background()
	s.jobs = testhelpers.NewJobRepositoryForTest(s.tdb.DB, s.tdb.Logger)
	s.dems = testhelpers.NewDEMRepositoryForTest(s.tdb.DB, s.tdb.Logger)
	s.analyses = testhelpers.NewAnalysisRepositoryForTest(s.tdb.DB, s.tdb.Logger)
	s.profiles = testhelpers.NewProfileRepositoryForTest(s.tdb.DB, s.tdb.Logger)
	s.contours = testhelpers.NewContourRepositoryForTest(s.tdb.DB, s.tdb.Logger)
	s.projectID = "test-project"
}

func (s *TerrainRepositorySuite) TearDownSuite() {
	if s.tdb != nil {
		s.tdb.Close()
	}
}

func (s *TerrainRepositorySuite) SetupTest() {
	s.Require().NoError(s.tdb.Cleanup(s.ctx))
}

func (s *TerrainRepositorySuite) createDEM() *domain.DEM {
	b := raster.Bounds{MinLng: 2.0, MinLat: 41.0, MaxLng: 2.01, MaxLat: 41.01}
	g, err := raster.NewFilled(4, 3, 100, raster.NewGeoTransform(b, 4, 3), "", raster.DefaultNoData)
	s.Require().NoError(err)
	blob, err := raster.Marshal(g)
	s.Require().NoError(err)

	rmse := 0.4
	d := &domain.DEM{
		ID:           uuid.New(),
		ProjectID:    &s.projectID,
		Source:       domain.DEMSourceContours,
		Width:        4,
		Height:       3,
		MinElevation: 100,
		MaxElevation: 100,
		AvgElevation: 100,
		RMSE:         &rmse,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	d.SetBounds(b)
	s.Require().NoError(s.dems.Create(s.ctx, d, blob))
	return d
}

func (s *TerrainRepositorySuite) TestDEM_CreateAndLoad() {
	// Arrange
	d := s.createDEM()

	// Act
	got, err := s.dems.GetByID(s.ctx, d.ID)
	s.Require().NoError(err)
	blob, err := s.dems.GetRaster(s.ctx, d.ID)
	s.Require().NoError(err)

	// Assert
	s.Require().NotNil(got)
	s.Equal(d.Bounds(), got.Bounds())
	s.Equal(4, got.Width)
	s.Require().NotNil(got.RMSE)
	s.InDelta(0.4, *got.RMSE, 1e-9)

	g, err := raster.Unmarshal(blob, 0)
	s.Require().NoError(err)
	s.Equal(4, g.Width())
	s.Equal(100.0, g.At(3, 2))

	list, err := s.dems.ListByProject(s.ctx, s.projectID)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *TerrainRepositorySuite) TestDEM_NotFound() {
	got, err := s.dems.GetByID(s.ctx, uuid.New())
	s.NoError(err)
	s.Nil(got)

	blob, err := s.dems.GetRaster(s.ctx, uuid.New())
	s.NoError(err)
	s.Nil(blob)
}

func (s *TerrainRepositorySuite) TestJob_Lifecycle() {
	now := time.Now().UTC()
	job := domain.NewJob(domain.JobTypeSlope, json.RawMessage(`{"dem_id":"abc"}`), now)
	s.Require().NoError(s.jobs.Create(s.ctx, job))

	job.Start(now)
	s.Require().NoError(s.jobs.Update(s.ctx, job))
	s.Require().NoError(s.jobs.UpdateProgress(s.ctx, job.ID, 40))

	got, err := s.jobs.GetByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusProcessing, got.Status)
	s.Equal(40, got.Progress)
	s.JSONEq(`{"dem_id":"abc"}`, string(got.Request))

	job.Complete(uuid.New(), now.Add(time.Second))
	s.Require().NoError(s.jobs.Update(s.ctx, job))

	got, err = s.jobs.GetByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusCompleted, got.Status)
	s.Equal(100, got.Progress)
	s.NotNil(got.ResultID)
}

func (s *TerrainRepositorySuite) TestJob_FailStale() {
	started := time.Now().UTC().Add(-2 * time.Hour)
	stale := domain.NewJob(domain.JobTypeDEM, json.RawMessage(`{}`), started)
	s.Require().NoError(s.jobs.Create(s.ctx, stale))
	stale.Start(started)
	s.Require().NoError(s.jobs.Update(s.ctx, stale))

	fresh := domain.NewJob(domain.JobTypeDEM, json.RawMessage(`{}`), time.Now().UTC())
	s.Require().NoError(s.jobs.Create(s.ctx, fresh))
	fresh.Start(time.Now().UTC())
	s.Require().NoError(s.jobs.Update(s.ctx, fresh))

	n, err := s.jobs.FailStale(s.ctx, time.Now().UTC().Add(-30*time.Minute), "stale: worker timeout")
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	got, err := s.jobs.GetByID(s.ctx, stale.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusFailed, got.Status)
	s.Require().NotNil(got.ErrorMessage)
	s.Equal("stale: worker timeout", *got.ErrorMessage)

	got, err = s.jobs.GetByID(s.ctx, fresh.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusProcessing, got.Status)
}

func (s *TerrainRepositorySuite) TestAnalysisAndProfile() {
	d := s.createDEM()

	a := &domain.Analysis{
		ID:        uuid.New(),
		DEMID:     d.ID,
		Kind:      domain.AnalysisSlope,
		Config:    json.RawMessage(`{"max_buildable_slope":15}`),
		Stats:     json.RawMessage(`{"mean_slope":3.2}`),
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.analyses.Create(s.ctx, a))

	got, err := s.analyses.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.JSONEq(`{"mean_slope":3.2}`, string(got.Stats))
	s.Nil(got.Areas)

	list, err := s.analyses.ListByDEM(s.ctx, d.ID, domain.AnalysisSlope)
	s.Require().NoError(err)
	s.Len(list, 1)

	p := &domain.Profile{
		ID:        uuid.New(),
		DEMID:     d.ID,
		Line:      json.RawMessage(`{"type":"LineString","coordinates":[[2.001,41.005],[2.009,41.005]]}`),
		Points:    json.RawMessage(`[]`),
		Stats:     json.RawMessage(`{"total_distance":670}`),
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.profiles.Create(s.ctx, p))

	gotProfile, err := s.profiles.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.JSONEq(string(p.Stats), string(gotProfile.Stats))
}

func (s *TerrainRepositorySuite) TestContours() {
	var ids []int64
	for _, c := range testhelpers.RampContours(2.0, 41.0, 41.01, 0.002, 5, 3) {
		id, err := testhelpers.InsertContour(s.ctx, s.tdb.DB.DB, s.projectID, c.Elevation, c.Line)
		s.Require().NoError(err)
		ids = append(ids, id)
	}

	all, err := s.contours.GetByProject(s.ctx, s.projectID)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(0.0, all[0].Elevation)
	s.Equal(10.0, all[2].Elevation)
	s.Len(all[1].Line, 3)

	some, err := s.contours.GetByIDs(s.ctx, ids[:2])
	s.Require().NoError(err)
	assert.Len(s.T(), some, 2)

	none, err := s.contours.GetByIDs(s.ctx, nil)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), none)
}
