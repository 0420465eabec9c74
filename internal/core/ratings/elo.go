package ratings

import "math"

const (
	// InitialElo is the rating every team starts at.
	InitialElo = 1500.0
	// KFactor is the per-match rating step. 32 is the common choice for
	// club-level play; higher values chase form, lower values smooth it.
	KFactor = 32.0
)

// Expected returns the expected score of a player rated eloA against eloB
// under the standard logistic curve: 1 / (1 + 10^((eloB-eloA)/400)).
func Expected(eloA, eloB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (eloB-eloA)/400.0))
}

// update returns the rating deltas for home and away given the home side's
// actual score (1 win, 0.5 draw, 0 loss). The deltas are equal and opposite,
// so rating points are conserved between the two participants.
func update(eloHome, eloAway, actualHome float64) (dHome, dAway float64) {
	expectedHome := Expected(eloHome, eloAway)
	dHome = KFactor * (actualHome - expectedHome)
	return dHome, -dHome
}
