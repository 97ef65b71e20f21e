// Package hierarchy derives the geographic ancestors of a polling section.
package hierarchy

// TotalKey is the sentinel key aggregating every section nationwide.
const TotalKey = "total"

const (
	municipalityWidth = 4
	regionWidth       = 2
)

// Level is a granularity at which records are aggregated.
type Level int

const (
	Section Level = iota
	Municipality
	Region
	Total
)

// Levels returns every level, finest first.
func Levels() []Level {
	return []Level{Section, Municipality, Region, Total}
}

// Category is the output directory name for records of this level.
func (l Level) Category() string {
	switch l {
	case Section:
		return "sections"
	case Municipality:
		return "municipalities"
	case Region:
		return "riks"
	case Total:
		return "total"
	}
	return "unknown"
}

func (l Level) String() string {
	return l.Category()
}

// Keys are the level keys a section contributes to.
type Keys struct {
	Section      string
	Municipality string
	Region       string
	Total        string
}

// KeysFor derives a section's ancestor keys by fixed-width prefix. Ids
// shorter than a prefix yield the whole id for that level instead of failing.
func KeysFor(sectionID string) Keys {
	return Keys{
		Section:      sectionID,
		Municipality: prefix(sectionID, municipalityWidth),
		Region:       prefix(sectionID, regionWidth),
		Total:        TotalKey,
	}
}

// For returns the key at level l.
func (k Keys) For(l Level) string {
	switch l {
	case Section:
		return k.Section
	case Municipality:
		return k.Municipality
	case Region:
		return k.Region
	default:
		return k.Total
	}
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
