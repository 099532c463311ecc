// Package geo содержит геодезические помощники, общие для движка и сервисного слоя.
package geo

import "math"

// EarthRadiusMeters - средний радиус Земли
const EarthRadiusMeters = 6371000.0

// Haversine возвращает расстояние по дуге большого круга между двумя точками в метрах
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// ValidateCoordinates проверяет валидность координат
func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DestinationEast возвращает долготу точки, смещенной на meters к востоку по той же широте.
// Используется для построения тестовых линий заданной длины.
func DestinationEast(lat, lng, meters float64) float64 {
	latRad := lat * math.Pi / 180.0
	// обратная формула гаверсинуса при dLat = 0
	h := math.Sin(meters/(2*EarthRadiusMeters)) / math.Cos(latRad)
	return lng + 2*math.Asin(h)*180/math.Pi
}
