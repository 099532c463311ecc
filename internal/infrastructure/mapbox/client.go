package mapbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terrain-microservice/internal/config"
	"github.com/terrain-microservice/internal/domain/repository"
	apperrors "github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// statusError - ответ Mapbox с кодом, отличным от 200
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("mapbox API error: status %d, body: %s", e.StatusCode, e.Body)
}

type client struct {
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[[]byte]
	baseURL     string
	accessToken string
	tileset     string
	maxTiles    int
	maxCells    int
	concurrency int
	maxRetries  uint64
	logger      *zap.Logger
}

// NewTerrainRGBClient создает источник высот на тайлах Mapbox Terrain-RGB.
// maxCells ограничивает размер результирующей сетки.
func NewTerrainRGBClient(cfg *config.MapboxConfig, maxCells int, logger *zap.Logger) repository.ElevationSource {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	settings := gobreaker.Settings{
		Name:        "mapbox-terrain-rgb",
		MaxRequests: cfg.BreakerMaxRequests,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 4xx - ошибка запроса, а не недоступность сервиса
		IsSuccessful: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker:     gobreaker.NewCircuitBreaker[[]byte](settings),
		baseURL:     cfg.BaseURL,
		accessToken: cfg.Token,
		tileset:     cfg.Tileset,
		maxTiles:    max(cfg.MaxTiles, 1),
		maxCells:    maxCells,
		concurrency: max(cfg.Concurrency, 1),
		maxRetries:  cfg.MaxRetries,
		logger:      logger,
	}
}

// FetchGrid собирает сетку высот north-up для охвата: шаг по долготе равен
// пикселю тайла на этом зуме, строки равномерны по широте.
func (c *client) FetchGrid(ctx context.Context, bounds raster.Bounds, zoom int) (*raster.Grid, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if zoom < 0 || zoom > MaxZoom {
		return nil, terrain.InputError("zoom must be within [0, %d], got %d", MaxZoom, zoom)
	}
	if bounds.MinLat < -MaxMercatorLat || bounds.MaxLat > MaxMercatorLat {
		return nil, terrain.InputError("latitude outside Web Mercator range ±%v", MaxMercatorLat)
	}

	px0, px1 := lngToPixel(bounds.MinLng, zoom), lngToPixel(bounds.MaxLng, zoom)
	py0, py1 := latToPixel(bounds.MaxLat, zoom), latToPixel(bounds.MinLat, zoom)

	width := max(2, int(math.Ceil(px1-px0)))
	height := max(2, int(math.Ceil(py1-py0)))
	if c.maxCells > 0 && width*height > c.maxCells {
		return nil, terrain.InputError("grid %dx%d at zoom %d exceeds the %d cell limit", width, height, zoom, c.maxCells)
	}

	last := int(math.Exp2(float64(zoom))) - 1
	tx0, tx1 := int(px0/tileSize), min(int((px1-1e-9)/tileSize), last)
	ty0, ty1 := int(py0/tileSize), min(int((py1-1e-9)/tileSize), last)
	tx1, ty1 = max(tx1, tx0), max(ty1, ty0)

	tiles := (tx1 - tx0 + 1) * (ty1 - ty0 + 1)
	if tiles > c.maxTiles {
		return nil, terrain.InputError("bounds need %d tiles at zoom %d, limit is %d", tiles, zoom, c.maxTiles)
	}

	c.logger.Debug("Fetching Terrain-RGB tiles",
		zap.Int("zoom", zoom),
		zap.Int("tiles", tiles),
		zap.Int("width", width),
		zap.Int("height", height))

	m := newMosaic(tx0, ty0, tx1, ty1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			g.Go(func() error {
				tile, err := c.fetchTile(gctx, zoom, tx, ty)
				if err != nil {
					return err
				}
				m.put(tx, ty, tile)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gt := raster.NewGeoTransform(bounds, width, height)
	data := make([]float64, width*height)
	for r := 0; r < height; r++ {
		_, lat := gt.PixelToGeo(0, float64(r)+0.5)
		py := latToPixel(lat, zoom)
		for col := 0; col < width; col++ {
			lng, _ := gt.PixelToGeo(float64(col)+0.5, 0)
			data[r*width+col] = m.at(lngToPixel(lng, zoom), py)
		}
	}

	return raster.New(width, height, data, gt, raster.CRSWGS84, raster.DefaultNoData)
}

// fetchTile скачивает и декодирует один тайл: повторы с экспоненциальной
// задержкой, каждый вызов проходит через circuit breaker
func (c *client) fetchTile(ctx context.Context, zoom, x, y int) ([]float64, error) {
	url := fmt.Sprintf("%s/v4/%s/%d/%d/%d.pngraw?access_token=%s", c.baseURL, c.tileset, zoom, x, y, c.accessToken)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)

	var body []byte
	operation := func() error {
		b, err := c.breaker.Execute(func() ([]byte, error) {
			return c.get(ctx, url)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			var se *statusError
			if errors.As(err, &se) && se.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Error("Failed to fetch Terrain-RGB tile",
			zap.Int("z", zoom), zap.Int("x", x), zap.Int("y", y),
			zap.Error(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.ErrElevationSourceUnavailable
		}
		var se *statusError
		if errors.As(err, &se) && se.StatusCode < 500 {
			return nil, apperrors.ErrElevationSourceUnavailable.WithMessage(
				fmt.Sprintf("tile %d/%d/%d rejected with status %d", zoom, x, y, se.StatusCode))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.ErrElevationSourceUnavailable.WithMessage(err.Error())
	}

	return decodeTile(bytes.NewReader(body))
}

func (c *client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile: %w", err)
	}
	return body, nil
}
