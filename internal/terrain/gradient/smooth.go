package gradient

import (
	"context"
	"math"

	"github.com/terrain-microservice/internal/terrain"
	"github.com/terrain-microservice/internal/terrain/raster"
)

// gaussianTruncate matches the usual 4-sigma kernel radius.
const gaussianTruncate = 4.0

// Smooth applies a separable Gaussian blur with sigma = kernelSize/3. Borders
// use half-sample reflection. No-data cells keep their sentinel and are left
// out of neighbouring sums, with the remaining weights renormalised.
func Smooth(ctx context.Context, g *raster.Grid, kernelSize, workers int) (*raster.Grid, error) {
	if kernelSize <= 0 || kernelSize%2 == 0 {
		return nil, terrain.InputError("smoothing kernel size must be a positive odd number, got %d", kernelSize)
	}
	kernel := gaussianKernel(float64(kernelSize) / 3)
	w, h := g.Width(), g.Height()
	src := g.Values()

	tmp := make([]float64, len(src))
	err := forRows(ctx, h, workers, func(r0, r1 int) {
		for r := r0; r < r1; r++ {
			for c := 0; c < w; c++ {
				i := r*w + c
				if g.IsNoData(src[i]) {
					tmp[i] = src[i]
					continue
				}
				tmp[i] = convolve(kernel, g, func(k int) float64 { return src[r*w+reflect(c+k, w)] })
			}
		}
	})
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(src))
	err = forRows(ctx, h, workers, func(r0, r1 int) {
		for r := r0; r < r1; r++ {
			for c := 0; c < w; c++ {
				i := r*w + c
				if g.IsNoData(tmp[i]) {
					out[i] = tmp[i]
					continue
				}
				out[i] = convolve(kernel, g, func(k int) float64 { return tmp[reflect(r+k, h)*w+c] })
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return g.Derive(out, g.NoData())
}

// gaussianKernel returns normalised weights for offsets -radius..radius.
func gaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func convolve(kernel []float64, g *raster.Grid, at func(offset int) float64) float64 {
	radius := len(kernel) / 2
	var acc, wsum float64
	for k := -radius; k <= radius; k++ {
		v := at(k)
		if g.IsNoData(v) {
			continue
		}
		wt := kernel[k+radius]
		acc += wt * v
		wsum += wt
	}
	return acc / wsum
}

// reflect maps i into [0, n) mirroring about the outer cell edges (d c b a | a b c d | d c b a).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}
