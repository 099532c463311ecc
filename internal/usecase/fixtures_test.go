package usecase_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/terrain/raster"
	"github.com/terrain-microservice/internal/usecase/dto"
)

var demBounds = raster.Bounds{MinLng: 10, MinLat: 46, MaxLng: 10.01, MaxLat: 46.01}

// rampContours - изолинии север-юг через каждые 0.0025 градуса, высота растет на восток
func rampContours() []dto.ContourInput {
	var out []dto.ContourInput
	for i := 0; i <= 4; i++ {
		lng := 10 + float64(i)*0.0025
		var coords [][2]float64
		// вершины соседних линий смещены, чтобы не было четверок на одной окружности
		for lat := 45.998 + float64(i)*0.0003; lat <= 46.0115; lat += 0.001 {
			coords = append(coords, [2]float64{lng, lat})
		}
		out = append(out, dto.ContourInput{Elevation: 100 + 10*float64(i), Coordinates: coords})
	}
	return out
}

// eastRamp - сетка 20x20 (около 8 x 11 м на ячейку), высота растет на 1 м на столбец:
// склон смотрит на запад, уклон около 12%
func eastRamp(t *testing.T) *raster.Grid {
	t.Helper()
	const n = 20
	b := raster.Bounds{MinLng: 2.0, MinLat: 41.0, MaxLng: 2.002, MaxLat: 41.002}
	data := make([]float64, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			data[r*n+c] = 100 + float64(c)
		}
	}
	g, err := raster.New(n, n, data, raster.NewGeoTransform(b, n, n), raster.CRSWGS84, raster.DefaultNoData)
	require.NoError(t, err)
	return g
}

// expectStoredDEM настраивает мок на выдачу DEM и ее сетки
func expectStoredDEM(t *testing.T, repo *MockDEMRepository, g *raster.Grid) uuid.UUID {
	t.Helper()
	id := uuid.New()
	record := &domain.DEM{ID: id, Source: domain.DEMSourceASCII, Width: g.Width(), Height: g.Height(), CreatedAt: time.Now()}
	record.SetBounds(g.Bounds())
	blob, err := raster.Marshal(g)
	require.NoError(t, err)

	repo.On("GetByID", mock.Anything, id).Return(record, nil)
	repo.On("GetRaster", mock.Anything, id).Return(blob, nil)
	return id
}

func ptr[T any](v T) *T {
	return &v
}
