package capture

import (
	"fmt"
	"sort"

	"github.com/hivoco/lens-kiosk/internal/config"
	"github.com/hivoco/lens-kiosk/internal/domain/imaging"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/domain/validation"
)

// Profile parameterises the capture flow for one call site.
type Profile struct {
	Name        string
	Description string
	Policy      validation.Policy
	// Compression is nil when the profile submits the validated bytes as-is.
	Compression *imaging.Options
	// FallbackToOriginal submits the original bytes when compression fails.
	FallbackToOriginal bool
	RequiredFields     []string
	Endpoint           submission.Endpoint
	PhotoCheck         bool
}

// Profiles indexes profiles by name.
type Profiles map[string]Profile

// NewProfiles converts profile configuration into domain profiles.
func NewProfiles(cfgs []config.ProfileConfig) (Profiles, error) {
	out := make(Profiles, len(cfgs))
	for _, c := range cfgs {
		endpoint := submission.Endpoint(c.Endpoint)
		if !endpoint.Valid() {
			return nil, fmt.Errorf("profile %q: unknown endpoint %q", c.Name, c.Endpoint)
		}
		p := Profile{
			Name:        c.Name,
			Description: c.Description,
			Policy: validation.Policy{
				MaxBytes:     c.MaxBytes,
				AllowedTypes: append([]string{}, c.AllowedTypes...),
			},
			RequiredFields: append([]string{}, c.RequiredFields...),
			Endpoint:       endpoint,
			PhotoCheck:     c.PhotoCheck,
		}
		if c.Compression.Enabled {
			p.Compression = &imaging.Options{
				MaxWidth:  c.Compression.MaxWidth,
				MaxHeight: c.Compression.MaxHeight,
				Quality:   c.Compression.Quality,
				MaxPixels: c.Compression.MaxPixels,
			}
			p.FallbackToOriginal = c.Compression.FallbackToOriginal
		}
		out[p.Name] = p
	}
	return out, nil
}

// Names returns the profile names in order.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
