package types

// LocationRecord is where a report was captured.
// Address is best effort and may be the literal "Unknown".
type LocationRecord struct {
	Latitude  float64 `firestore:"latitude" json:"latitude"`
	Longitude float64 `firestore:"longitude" json:"longitude"`
	Address   string  `firestore:"address" json:"address"`
}

const UnknownAddress = "Unknown"

// Position is a raw device fix before reverse geocoding.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are inside WGS84 bounds.
func (p Position) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}
