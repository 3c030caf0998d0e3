package enums

import "fmt"

// IconName is a named glyph a collection can display instead of, or next
// to, its emoji. The set is closed; clients render it from their own icon
// library.
type IconName string

const (
	IconPackage  IconName = "Package"
	IconStar     IconName = "Star"
	IconTrophy   IconName = "Trophy"
	IconCrown    IconName = "Crown"
	IconHeart    IconName = "Heart"
	IconZap      IconName = "Zap"
	IconGift     IconName = "Gift"
	IconAward    IconName = "Award"
	IconTarget   IconName = "Target"
	IconFlame    IconName = "Flame"
	IconSparkles IconName = "Sparkles"
	IconMedal    IconName = "Medal"
	IconGem      IconName = "Gem"
	IconRocket   IconName = "Rocket"
	IconShield   IconName = "Shield"
)

var validIconNames = []IconName{
	IconPackage,
	IconStar,
	IconTrophy,
	IconCrown,
	IconHeart,
	IconZap,
	IconGift,
	IconAward,
	IconTarget,
	IconFlame,
	IconSparkles,
	IconMedal,
	IconGem,
	IconRocket,
	IconShield,
}

func (i IconName) String() string {
	return string(i)
}

// IsValid reports whether the icon is part of the registry.
func (i IconName) IsValid() bool {
	for _, candidate := range validIconNames {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIconName converts raw input into an IconName.
func ParseIconName(value string) (IconName, error) {
	for _, candidate := range validIconNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid icon name %q", value)
}

// IconNames lists the registry in display order.
func IconNames() []IconName {
	out := make([]IconName, len(validIconNames))
	copy(out, validIconNames)
	return out
}
