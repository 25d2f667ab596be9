package models

// Progress is the fraction of rows geocoded so far in a run.
type Progress struct {
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
}

// PipelineResult is the outcome of processing one uploaded table.
type PipelineResult struct {
	RunID    string          `json:"run_id"`
	Raw      []AddressRecord `json:"raw"`
	Records  []AddressRecord `json:"records"`
	Geocoded []AddressRecord `json:"geocoded"`
	Map      *MapView        `json:"map"`
	Warning  string          `json:"warning,omitempty"`
}
