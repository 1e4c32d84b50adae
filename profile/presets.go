package profile

import "encoding/json"

const rentalNote = "Note: Please return rented components in original condition. Any damages or loss " +
	"incurred during the rental period will be your responsibility."

// IEEEJSON returns the IEEE SB GCEK profile. The chairperson signs, and a
// recipient phone number is mandatory.
func IEEEJSON() string {
	pj := map[string]any{
		"id":           "ieee",
		"organization": "IEEE SB GCEK",
		"title":        "IEEE Acknowledgement Form",
		"currency":     "Rs",
		"issuer": map[string]any{
			"label": "Chairperson",
			"role":  "Chairperson",
		},
		"require_phone": true,
		"note":          rentalNote,
		"defaults": map[string]any{
			"discount_pct": 0,
			"tax_pct":      18,
		},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// RobocekJSON returns the ROBOCEK GCEK profile. The vice president signs and
// the phone number is optional.
func RobocekJSON() string {
	pj := map[string]any{
		"id":           "robocek",
		"organization": "ROBOCEK GCEK",
		"title":        "ROBOCEK GCEK Acknowledgement Form",
		"currency":     "Rs",
		"issuer": map[string]any{
			"label": "Vice President",
			"role":  "Vice President",
		},
		"require_phone": false,
		"note":          rentalNote,
		"defaults": map[string]any{
			"discount_pct": 0,
			"tax_pct":      18,
		},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}
