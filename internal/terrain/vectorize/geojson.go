package vectorize

import (
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// ToFeatureCollection wraps regions as GeoJSON features. Each feature carries
// the shared properties plus its value, cell count and spherical area.
func ToFeatureCollection(regions []Region, shared map[string]any) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range regions {
		f := geojson.NewFeature(r.Polygon)
		for k, v := range shared {
			f.Properties[k] = v
		}
		f.Properties["value"] = r.Value
		f.Properties["cells"] = r.Cells
		f.Properties["area_m2"] = geo.Area(r.Polygon)
		fc.Append(f)
	}
	return fc
}
