// Package all registers every built-in source. Import it for side effects.
package all

import (
	_ "github.com/Vodeneev/tripprices/internal/sources/fantravel"
	_ "github.com/Vodeneev/tripprices/internal/sources/fodboldrejseguiden"
	_ "github.com/Vodeneev/tripprices/internal/sources/footballtravel"
	_ "github.com/Vodeneev/tripprices/internal/sources/olka"
)
