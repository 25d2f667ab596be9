package models

// Marker is a single labelled point on the map.
type Marker struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
}

// MapView is everything a map display needs: where to look and what to pin.
type MapView struct {
	CenterLatitude  float64  `json:"center_latitude"`
	CenterLongitude float64  `json:"center_longitude"`
	Zoom            int      `json:"zoom"`
	Markers         []Marker `json:"markers"`
}
