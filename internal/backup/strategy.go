package backup

import (
	"fmt"
	"strings"
)

// Strategy decides how a bundle record that matches a local record is merged.
type Strategy string

const (
	// Skip keeps the local record untouched and maps the bundle record to it.
	Skip Strategy = "skip"
	// Overwrite replaces the local record's mutable fields. Stock quantity
	// and location are never overwritten.
	Overwrite Strategy = "overwrite"
	// KeepBoth inserts the bundle record as a new row with a suffixed name.
	KeepBoth Strategy = "keep_both"
)

// DefaultStrategy applies to records without an explicit choice.
const DefaultStrategy = KeepBoth

// ParseStrategy parses a strategy name. Hyphens and case are ignored, so
// "keep-both" and "KeepBoth" both work.
func ParseStrategy(s string) (Strategy, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	switch norm {
	case "skip":
		return Skip, nil
	case "overwrite":
		return Overwrite, nil
	case "keep_both", "keepboth", "both":
		return KeepBoth, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (use skip, overwrite or keep_both)", s)
	}
}

// Strategies maps bundle-local record ids to strategies.
type Strategies struct {
	Inventory map[int64]Strategy
	Projects  map[int64]Strategy
}

// ForInventory returns the strategy for a bundle inventory id.
func (s Strategies) ForInventory(id int64) Strategy {
	return lookup(s.Inventory, id)
}

// ForProject returns the strategy for a bundle project id.
func (s Strategies) ForProject(id int64) Strategy {
	return lookup(s.Projects, id)
}

func lookup(m map[int64]Strategy, id int64) Strategy {
	if st, ok := m[id]; ok && st != "" {
		return st
	}
	return DefaultStrategy
}

// Uniform returns Strategies that apply st to every conflict in report.
func Uniform(report *ScanReport, st Strategy) Strategies {
	out := Strategies{
		Inventory: make(map[int64]Strategy),
		Projects:  make(map[int64]Strategy),
	}
	if report == nil {
		return out
	}
	for _, c := range report.Conflicts.Inventory {
		out.Inventory[c.Remote.ID] = st
	}
	for _, c := range report.Conflicts.Projects {
		out.Projects[c.Remote.ID] = st
	}
	return out
}
