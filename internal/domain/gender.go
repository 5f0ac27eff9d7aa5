package domain

// Gender represents a race division. Placements, records and scoring are
// always computed within a single race+gender division.
type Gender string

const (
	GenderMen   Gender = "MEN"
	GenderWomen Gender = "WOMEN"
)

// String returns the string representation of Gender.
func (g Gender) String() string {
	return string(g)
}

// IsValid checks if the gender is a valid value.
func (g Gender) IsValid() bool {
	return g == GenderMen || g == GenderWomen
}

// Genders lists all valid divisions in a stable order.
var Genders = []Gender{GenderMen, GenderWomen}
