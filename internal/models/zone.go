package models

// Coordinate is one vertex of a zone boundary
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Zone is a monitoring area as returned by the backend.
// Handlers hold a read-only copy and replace it wholesale on reload.
type Zone struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Coordinates []Coordinate `json:"coordinates"`
	Area        float64      `json:"area"` // square meters
	Status      string       `json:"status"`
	CreatedAt   Time         `json:"created_at"`
	UserID      int64        `json:"user_id"`

	// Computed by the backend when measurements exist
	TotalCarbonAbsorption *float64 `json:"total_carbon_absorption,omitempty"`
	CurrentNDVI           *float64 `json:"current_ndvi,omitempty"`
	MeasurementsCount     int      `json:"measurements_count"`
}

// ZoneCreate is the payload for creating a zone; the backend computes the area
type ZoneCreate struct {
	Name        string       `json:"name"`
	Coordinates []Coordinate `json:"coordinates"`
}

// ZoneUpdate is a partial zone update
type ZoneUpdate struct {
	Name        *string      `json:"name,omitempty"`
	Coordinates []Coordinate `json:"coordinates,omitempty"`
	Area        *float64     `json:"area,omitempty"`
	Status      *string      `json:"status,omitempty"`
}
