package models

// Location is a geocoding result: the query that was resolved, the provider's
// best match for it and that match's coordinates.
type Location struct {
	Query       string  `json:"query"`
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Provider    string  `json:"provider"`
}
