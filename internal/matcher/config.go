package matcher

import (
	"fmt"

	"remittance-reconciliation-service/internal/models"
)

// MatchingConfig holds the thresholds and exception table for one engine.
// The agency table is injected configuration, not a compiled constant, so it
// can be swapped in tests and extended without code changes.
type MatchingConfig struct {
	// CompleteThreshold is the similarity score at and above which a match
	// is proposed as Completed.
	CompleteThreshold float64
	// ReviewThreshold separates the two NeedsReview tiers: at and above it
	// the name spelling merely differs, below it only the amount matches.
	ReviewThreshold float64
	// Agencies are checked by substring against the raw payer name before
	// any invoice lookup.
	Agencies []models.AgencyException
}

// DefaultMatchingConfig returns the standard thresholds with an empty
// agency table.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		CompleteThreshold: 0.50,
		ReviewThreshold:   0.35,
	}
}

// Validate validates the matching configuration
func (c *MatchingConfig) Validate() error {
	if c.CompleteThreshold < 0 || c.CompleteThreshold > 1 {
		return fmt.Errorf("complete threshold must be within [0, 1], got %v", c.CompleteThreshold)
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("review threshold must be within [0, 1], got %v", c.ReviewThreshold)
	}
	if c.ReviewThreshold > c.CompleteThreshold {
		return fmt.Errorf("review threshold %v cannot exceed complete threshold %v",
			c.ReviewThreshold, c.CompleteThreshold)
	}

	for i := range c.Agencies {
		if err := c.Agencies[i].Validate(); err != nil {
			return fmt.Errorf("invalid agency exception %d: %w", i, err)
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration
func (c *MatchingConfig) Clone() *MatchingConfig {
	clone := &MatchingConfig{
		CompleteThreshold: c.CompleteThreshold,
		ReviewThreshold:   c.ReviewThreshold,
	}
	if len(c.Agencies) > 0 {
		clone.Agencies = make([]models.AgencyException, len(c.Agencies))
		copy(clone.Agencies, c.Agencies)
	}
	return clone
}
