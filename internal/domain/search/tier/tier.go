package tier

// Tier is the degradation level an answer was produced under: which subset
// of backends survived the fan-out for a given query.
type Tier string

// Degradation tiers, best first.
const (
	// Full means every requested backend answered.
	Full Tier = "full"
	// VectorOnly means the keyword backend failed or timed out.
	VectorOnly Tier = "vector_only"
	// KeywordOnly means the vector backend failed or timed out.
	KeywordOnly Tier = "keyword_only"
)

// IsValid checks if the tier is one of the supported values.
func (t Tier) IsValid() bool {
	return t == Full || t == VectorOnly || t == KeywordOnly
}

// Degraded reports whether the tier is anything less than Full.
func (t Tier) Degraded() bool { return t != Full }
