package export

import "arboretum/internal/models"

const (
	ProblemMissingLabel    = "missing tree number"
	ProblemMissingEasting  = "missing easting coordinate"
	ProblemMissingNorthing = "missing northing coordinate"
)

// Validate returns every required-field problem of a record, in a fixed
// order. An empty result means the record is eligible.
func Validate(r models.TreeRecord) []string {
	var problems []string
	if !models.Present(r.Label) {
		problems = append(problems, ProblemMissingLabel)
	}
	if !models.Present(r.Easting) {
		problems = append(problems, ProblemMissingEasting)
	}
	if !models.Present(r.Northing) {
		problems = append(problems, ProblemMissingNorthing)
	}
	return problems
}
