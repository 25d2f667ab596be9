package models

// AddressRecord is one row of an uploaded address table. The derived fields
// are filled in by the normalization and geocoding stages.
type AddressRecord struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	Country     string `json:"country"`

	FullAddress  string   `json:"full_address"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	GeocodeError string   `json:"geocode_error,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (r AddressRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// SetCoordinates stores a successful lookup on the record.
func (r *AddressRecord) SetCoordinates(lat, lon float64) {
	r.Latitude = &lat
	r.Longitude = &lon
	r.GeocodeError = ""
}

// ClearCoordinates marks the record as not geocoded, keeping the reason.
func (r *AddressRecord) ClearCoordinates(reason string) {
	r.Latitude = nil
	r.Longitude = nil
	r.GeocodeError = reason
}
