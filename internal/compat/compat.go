// Package compat holds the blood-type compatibility graph.
package compat

import "github.com/lifelink-health/donormatch/internal/model"

// Scores returned by Score. Incompatible pairs are never scored; the
// orchestrator filters them out before scoring.
const (
	ExactMatchScore      = 100.0
	CompatibleMatchScore = 80.0
)

// recipients maps a requested blood type to the donor types it can legally
// receive from. Standard ABO/Rh rules plus the A1/A1B subtypes and the
// Bombay (hh) phenotype seen in this donor population.
var recipients = map[string][]string{
	"O-":  {"O-"},
	"O+":  {"O+", "O-"},
	"A-":  {"A-", "O-"},
	"A+":  {"A+", "A-", "O+", "O-"},
	"B-":  {"B-", "O-"},
	"B+":  {"B+", "B-", "O+", "O-"},
	"AB-": {"AB-", "A-", "B-", "O-"},
	"AB+": {"AB+", "AB-", "A+", "A-", "B+", "B-", "O+", "O-"},

	// A1 subtypes receive like A of the same Rh.
	"A1-": {"A1-", "A-", "O-"},
	"A1+": {"A1+", "A1-", "A+", "A-", "O+", "O-"},

	// A1B subtypes receive like AB of the same Rh.
	"A1B-": {"A1B-", "A1-", "AB-", "A-", "B-", "O-"},
	"A1B+": {"A1B+", "A1B-", "A1+", "A1-", "AB+", "AB-", "A+", "A-", "B+", "B-", "O+", "O-"},

	// Bombay phenotype can only receive Bombay blood.
	"BOMBAY": {"BOMBAY"},
}

// DonorTypesFor returns the set of donor blood types compatible with the
// requested type. An unknown requested type degrades to exact-match only.
func DonorTypesFor(requested string) []string {
	rt := model.NormalizeBloodType(requested)
	if types, ok := recipients[rt]; ok {
		out := make([]string, len(types))
		copy(out, types)
		return out
	}
	if rt == "" {
		return nil
	}
	return []string{rt}
}

// Compatible reports whether a donor of donorType may give to a seeker
// requesting requested.
func Compatible(donorType, requested string) bool {
	dt := model.NormalizeBloodType(donorType)
	for _, t := range DonorTypesFor(requested) {
		if t == dt {
			return true
		}
	}
	return false
}

// Score returns 100 for an exact type match and 80 for any other
// compatible pairing.
func Score(donorType, requested string) float64 {
	if model.NormalizeBloodType(donorType) == model.NormalizeBloodType(requested) {
		return ExactMatchScore
	}
	return CompatibleMatchScore
}
