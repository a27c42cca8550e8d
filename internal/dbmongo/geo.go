package dbmongo

import "go.mongodb.org/mongo-driver/bson"

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

func NewGeoPoint(lat, lng float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p *GeoPoint) Lat() float64 {
	if p == nil || len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

func (p *GeoPoint) Lng() float64 {
	if p == nil || len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

// NearSphere is the $nearSphere operand for a 2dsphere index; maxKm is converted to meters.
func NearSphere(p *GeoPoint, maxKm float64) bson.D {
	return bson.D{{Key: "$nearSphere", Value: bson.D{
		{Key: "$geometry", Value: bson.D{
			{Key: "type", Value: "Point"},
			{Key: "coordinates", Value: p.Coordinates},
		}},
		{Key: "$maxDistance", Value: maxKm * 1000},
	}}}
}
