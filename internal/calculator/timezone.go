package calculator

import (
	"fmt"
	"time"
)

// DefaultTimezone is the reference timezone used when none is configured.
const DefaultTimezone = "America/New_York"

// LoadReference resolves the named reference timezone.
func LoadReference(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
