package matching

import "sort"

// NotableThreshold is the minimum sub-score worth explaining to the
// user.
const NotableThreshold = 70.0

// MaxReasons caps the explanation list per garment.
const MaxReasons = 3

var reasonText = map[string]string{
	"style":          "Matches your style",
	"size":           "In your size range",
	"color":          "Colors you wear often",
	"brand":          "A brand you love",
	"sustainability": "Fits your sustainability values",
}

// MatchReasons converts notable sub-scores into short human-readable
// explanations, strongest first, at most MaxReasons of them. Degraded
// scores produce no reasons.
func MatchReasons(score CompatibilityScore) []string {
	if score.Degraded {
		return nil
	}
	type sub struct {
		key   string
		value float64
	}
	subs := []sub{
		{"style", score.StyleMatch},
		{"size", score.SizeMatch},
		{"color", score.ColorMatch},
		{"brand", score.BrandPreference},
		{"sustainability", score.SustainabilityAlignment},
	}
	notable := subs[:0]
	for _, s := range subs {
		if s.value >= NotableThreshold {
			notable = append(notable, s)
		}
	}
	sort.SliceStable(notable, func(i, j int) bool {
		return notable[i].value > notable[j].value
	})
	if len(notable) > MaxReasons {
		notable = notable[:MaxReasons]
	}
	reasons := make([]string, 0, len(notable))
	for _, s := range notable {
		reasons = append(reasons, reasonText[s.key])
	}
	return reasons
}
