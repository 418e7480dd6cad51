package enums

import (
	"fmt"
	"strings"
)

// Category classifies an Item.
type Category string

const (
	CategorySneaker     Category = "sneaker"
	CategoryShoe        Category = "shoe"
	CategoryCollectible Category = "collectible"
	CategoryClothing    Category = "clothing"
	CategoryAccessory   Category = "accessory"
	CategoryOther       Category = "other"
)

var validCategories = []Category{
	CategorySneaker,
	CategoryShoe,
	CategoryCollectible,
	CategoryClothing,
	CategoryAccessory,
	CategoryOther,
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Category.
func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCategory converts raw input into a Category. Matching ignores case and
// surrounding whitespace.
func ParseCategory(value string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", value)
}

// Gender is the target audience of an Item.
type Gender string

const (
	GenderMen    Gender = "men"
	GenderWomen  Gender = "women"
	GenderUnisex Gender = "unisex"
	GenderKids   Gender = "kids"
)

var validGenders = []Gender{
	GenderMen,
	GenderWomen,
	GenderUnisex,
	GenderKids,
}

// String implements fmt.Stringer.
func (g Gender) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Gender.
func (g Gender) IsValid() bool {
	for _, candidate := range validGenders {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGender converts raw input into a Gender.
func ParseGender(value string) (Gender, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validGenders {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gender %q", value)
}

// Condition is part of a variant's identity: the same size can be sold new and used.
type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionUsed Condition = "used"
)

var validConditions = []Condition{
	ConditionNew,
	ConditionUsed,
}

// String implements fmt.Stringer.
func (c Condition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Condition.
func (c Condition) IsValid() bool {
	for _, candidate := range validConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCondition converts raw input into a Condition.
func ParseCondition(value string) (Condition, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validConditions {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid condition %q", value)
}

// SizingSystem identifies the scale a Sizing label belongs to.
type SizingSystem string

const (
	SizingSystemEU      SizingSystem = "eu"
	SizingSystemUS      SizingSystem = "us"
	SizingSystemUK      SizingSystem = "uk"
	SizingSystemOneSize SizingSystem = "one_size"
)

var validSizingSystems = []SizingSystem{
	SizingSystemEU,
	SizingSystemUS,
	SizingSystemUK,
	SizingSystemOneSize,
}

// String implements fmt.Stringer.
func (s SizingSystem) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SizingSystem.
func (s SizingSystem) IsValid() bool {
	for _, candidate := range validSizingSystems {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSizingSystem converts raw input into a SizingSystem.
func ParseSizingSystem(value string) (SizingSystem, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validSizingSystems {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sizing system %q", value)
}
