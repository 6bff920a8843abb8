// Package validation cleans and checks offers before they reach the correlator.
package validation

import (
	"fmt"
	"math"

	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

// MaxNights bounds a plausible package stay. Larger values are parse errors.
const MaxNights = 30

// ValidateOffer rejects offers that cannot be placed in the matrix at all. A zero or
// negative price is not an error here: it means "no usable price" and the correlator
// drops it.
func ValidateOffer(o models.RawOffer) error {
	if o.Entity.ID == "" {
		return fmt.Errorf("offer has no club")
	}
	if o.Source == "" {
		return fmt.Errorf("offer has no source")
	}
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
		return fmt.Errorf("price is not a number: %v", o.Price)
	}
	if o.Nights < 0 || o.Nights > MaxNights {
		return fmt.Errorf("nights out of range: %d", o.Nights)
	}
	return nil
}
