// Package domain holds the core types shared across the assistant.
package domain

// Hospital is one row of the queryable directory dataset. Rows are loaded
// once at startup and never mutated.
type Hospital struct {
	Name    string
	City    string
	Address string
}

// SeedHospitals is the fixed sample set used when no dataset file is present.
func SeedHospitals() []Hospital {
	return []Hospital{
		{Name: "Manipal Hospital", City: "Bangalore", Address: "Sarjapur Road"},
		{Name: "Apollo", City: "Mumbai", Address: "CBD Belapur"},
		{Name: "Manipal Sarjapur", City: "Bangalore", Address: "Sarjapur"},
	}
}
