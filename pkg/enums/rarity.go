package enums

import "fmt"

// Rarity grades how hard a reward is to obtain.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
)

var validRarities = []Rarity{
	RarityCommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
	RarityMythic,
}

// String returns the literal string for the rarity.
func (r Rarity) String() string {
	return string(r)
}

// IsValid reports whether the rarity is known.
func (r Rarity) IsValid() bool {
	for _, candidate := range validRarities {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRarity converts raw input into a Rarity.
func ParseRarity(value string) (Rarity, error) {
	for _, candidate := range validRarities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rarity %q", value)
}

// Rarities returns the accepted values in ascending order of scarcity.
func Rarities() []Rarity {
	out := make([]Rarity, len(validRarities))
	copy(out, validRarities)
	return out
}
