// Package parent models the entities that own capture records: pest
// inspections and crop findings.
package parent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Kind string

const (
	KindInspection Kind = "inspection"
	KindFinding    Kind = "finding"
)

// Category is the pest type of an inspection or the type of a finding.
type Category string

const (
	CategoryInsect   Category = "insect"
	CategoryFungus   Category = "fungus"
	CategoryBacteria Category = "bacteria"
	CategoryVirus    Category = "virus"
	CategoryMite     Category = "mite"
	CategoryNematode Category = "nematode"
	CategoryOther    Category = "other"

	CategoryObservation Category = "observation"
	CategoryProblem     Category = "problem"
	CategoryImprovement Category = "improvement"
	CategoryHarvest     Category = "harvest"
	CategoryGrowth      Category = "growth"
)

var (
	// ErrUnknownKind is returned when a persisted or user supplied kind is not
	// one of the known variants.
	ErrUnknownKind = errors.New("unknown parent kind")
	// ErrUnknownCategory is returned for a category that does not belong to
	// the parent's kind.
	ErrUnknownCategory = errors.New("unknown parent category")
)

// First entry is the default.
var categories = map[Kind][]Category{
	KindInspection: {CategoryInsect, CategoryFungus, CategoryBacteria, CategoryVirus, CategoryMite, CategoryNematode, CategoryOther},
	KindFinding:    {CategoryObservation, CategoryProblem, CategoryImprovement, CategoryHarvest, CategoryGrowth},
}

type Parent struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	Category  Category  `json:"category"`
	Label     string    `json:"label"`
	Crop      string    `json:"crop,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var fileSanitizePattern = regexp.MustCompile(`[@/\\:?*"<>|\s]`)

func NewInspection(label, crop string) Parent {
	return Parent{Kind: KindInspection, Category: KindInspection.DefaultCategory(), Label: label, Crop: crop}
}

func NewFinding(label, crop string) Parent {
	return Parent{Kind: KindFinding, Category: KindFinding.DefaultCategory(), Label: label, Crop: crop}
}

// ParseKind decodes a kind string. Unknown values are an error rather than a
// silent default.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindInspection:
		return KindInspection, nil
	case KindFinding:
		return KindFinding, nil
	default:
		return "", fmt.Errorf("%w: %q (valid values: inspection, finding)", ErrUnknownKind, value)
	}
}

// Categories lists the categories valid for k.
func (k Kind) Categories() []Category {
	return append([]Category(nil), categories[k]...)
}

// DefaultCategory is used when a parent is created without a category.
func (k Kind) DefaultCategory() Category {
	if cs := categories[k]; len(cs) > 0 {
		return cs[0]
	}
	return ""
}

// ParseCategory decodes a category of kind. Empty and unknown values are
// errors; callers that want the default ask for it explicitly.
func ParseCategory(kind Kind, value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	valid := categories[kind]
	for _, candidate := range valid {
		if c == candidate {
			return c, nil
		}
	}
	names := make([]string, len(valid))
	for i, v := range valid {
		names[i] = string(v)
	}
	return "", fmt.Errorf("%w: %q for %s (valid values: %s)", ErrUnknownCategory, value, kind, strings.Join(names, ", "))
}

func Validate(p Parent) error {
	if _, err := ParseKind(string(p.Kind)); err != nil {
		return err
	}
	if _, err := ParseCategory(p.Kind, string(p.Category)); err != nil {
		return err
	}
	if strings.TrimSpace(p.Label) == "" {
		return errors.New("parent label must not be empty")
	}
	if len(p.Label) > 200 {
		return errors.New("parent label must be at most 200 characters")
	}
	return nil
}

// Prefix is the file name prefix used for media captured under this kind.
func (k Kind) Prefix() string {
	switch k {
	case KindInspection:
		return "PLAGA"
	case KindFinding:
		return "HALLAZGO"
	default:
		return "CAPTURE"
	}
}

func Format(p Parent) string {
	if p.Crop == "" {
		return fmt.Sprintf("%s #%d %s [%s]", p.Kind, p.ID, p.Label, p.Category)
	}
	return fmt.Sprintf("%s #%d %s [%s] (%s)", p.Kind, p.ID, p.Label, p.Category, p.Crop)
}

// StorageKey is the directory name holding media for the parent.
func StorageKey(p Parent) string {
	return sanitizeForFile(fmt.Sprintf("%s-%d", p.Kind, p.ID))
}

func sanitizeForFile(value string) string {
	return fileSanitizePattern.ReplaceAllString(value, "-")
}
