package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const megabyte = 1024 * 1024

// CompressionConfig configures the optional image transform step of a profile.
type CompressionConfig struct {
	Enabled            bool    `yaml:"enabled"`
	MaxWidth           int     `yaml:"max_width"`
	MaxHeight          int     `yaml:"max_height"`
	Quality            float64 `yaml:"quality"`
	MaxPixels          int64   `yaml:"max_pixels"`
	FallbackToOriginal bool    `yaml:"fallback_to_original"`
}

// ProfileConfig describes one capture call site: validation policy, transform,
// companion fields and the backend endpoint the image is submitted to.
type ProfileConfig struct {
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	MaxBytes       int64             `yaml:"max_bytes"`
	AllowedTypes   []string          `yaml:"allowed_types"`
	Compression    CompressionConfig `yaml:"compression"`
	RequiredFields []string          `yaml:"required_fields"`
	Endpoint       string            `yaml:"endpoint"`
	PhotoCheck     bool              `yaml:"photo_check"`
}

type profilesFile struct {
	Profiles []ProfileConfig `yaml:"profiles"`
}

var defaultAllowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// DefaultProfiles returns the built-in capture profiles used when no file is configured.
func DefaultProfiles() []ProfileConfig {
	return []ProfileConfig{
		{
			Name:         "basic",
			Description:  "Face search from an uploaded or captured photo",
			MaxBytes:     10 * megabyte,
			AllowedTypes: defaultAllowedTypes,
			Endpoint:     "search_face",
		},
		{
			Name:         "advanced",
			Description:  "Face search with local compression",
			MaxBytes:     5 * megabyte,
			AllowedTypes: defaultAllowedTypes,
			Compression: CompressionConfig{
				Enabled:            true,
				MaxWidth:           1920,
				MaxHeight:          1440,
				Quality:            0.85,
				MaxPixels:          40_000_000,
				FallbackToOriginal: true,
			},
			Endpoint: "search_face",
		},
		{
			Name:           "with_id",
			Description:    "Link a photo to an ADA number and phone",
			MaxBytes:       10 * megabyte,
			AllowedTypes:   defaultAllowedTypes,
			RequiredFields: []string{"ada_no", "phone"},
			Endpoint:       "update_csv_record",
		},
		{
			Name:           "video",
			Description:    "Personalised video request gated by OTP",
			MaxBytes:       10 * megabyte,
			AllowedTypes:   defaultAllowedTypes,
			RequiredFields: []string{"mobile_number", "gender", "attribute_love", "relationship_status", "vibe"},
			Endpoint:       "video_submit",
			PhotoCheck:     true,
		},
	}
}

// LoadProfiles reads capture profiles from a YAML file. A missing file yields the defaults.
func LoadProfiles(path string) ([]ProfileConfig, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultProfiles(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	return ParseProfiles(data)
}

// ParseProfiles decodes and normalises a YAML profiles document.
func ParseProfiles(data []byte) ([]ProfileConfig, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("profiles file declares no profiles")
	}

	seen := make(map[string]struct{}, len(file.Profiles))
	for i := range file.Profiles {
		p := &file.Profiles[i]
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d: name is required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("profile %q declared twice", p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.MaxBytes <= 0 {
			return nil, fmt.Errorf("profile %q: max_bytes must be positive", p.Name)
		}
		if len(p.AllowedTypes) == 0 {
			p.AllowedTypes = defaultAllowedTypes
		}
		if p.Compression.Enabled {
			if p.Compression.MaxWidth <= 0 || p.Compression.MaxHeight <= 0 {
				return nil, fmt.Errorf("profile %q: compression bounds must be positive", p.Name)
			}
			if p.Compression.Quality == 0 {
				p.Compression.Quality = 0.85
			}
			if p.Compression.Quality < 0 || p.Compression.Quality > 1 {
				return nil, fmt.Errorf("profile %q: compression quality must be within (0, 1]", p.Name)
			}
			if p.Compression.MaxPixels < 0 {
				return nil, fmt.Errorf("profile %q: compression max_pixels must not be negative", p.Name)
			}
		}
		if p.Endpoint == "" {
			return nil, fmt.Errorf("profile %q: endpoint is required", p.Name)
		}
	}

	return file.Profiles, nil
}
