package config

import (
	"fmt"
	"log"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog holds the fixed lookup data used by the ingestion pipeline.
type Catalog struct {
	Identifiers       []string          `yaml:"identifiers"`
	ExchangeLocations map[string]string `yaml:"exchange_locations"`
	Categories        map[string]string `yaml:"categories"`
}

// DefaultCatalog returns a fresh copy of the built-in catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		Identifiers: []string{
			// Agriculture (some may require premium access)
			"corn", "wheat", "soybean", "soybean_meal", "soybean_oil",
			"coffee", "cocoa", "cotton", "sugar", "orange_juice",
			// Energy & metals
			"gold", "platinum", "aluminum", "copper", "crude_oil", "brent_crude_oil",
			"natural_gas", "gasoline_rbob", "heating_oil",
			// Livestock & others
			"lean_hogs", "feeder_cattle", "live_cattle", "oat", "lumber", "palladium", "micro_gold",
		},
		ExchangeLocations: map[string]string{
			"CME":   "Chicago, Illinois",
			"COMEX": "New York, New York",
			"NYMEX": "New York, New York",
			"CBOT":  "Chicago, Illinois",
			"ICE":   "Atlanta, Georgia",
			"LME":   "London, England",
			"TOCOM": "Tokyo, Japan",
			"SHFE":  "Shanghai, China",
			"DCE":   "Dalian, China",
			"ZCE":   "Zhengzhou, China",
		},
		Categories: map[string]string{
			"Gold":           "Precious Metal",
			"Silver":         "Precious Metal",
			"Platinum":       "Precious Metal",
			"Palladium":      "Precious Metal",
			"Copper":         "Industrial Metal",
			"Aluminum":       "Industrial Metal",
			"Crude Oil":      "Energy",
			"Natural Gas":    "Energy",
			"Gasoline":       "Energy",
			"Heating Oil":    "Energy",
			"Corn":           "Agriculture",
			"Wheat":          "Agriculture",
			"Soybean":        "Agriculture",
			"Coffee":         "Agriculture",
			"Cocoa":          "Agriculture",
			"Cotton":         "Agriculture",
			"Sugar":          "Agriculture",
			"Orange Juice":   "Agriculture",
			"Live Cattle":    "Livestock",
			"Feeder Cattle":  "Livestock",
			"Lean Hogs":      "Livestock",
			"Class III Milk": "Livestock",
		},
	}
}

// LoadCatalog returns the built-in catalog, with any non-empty section of the
// YAML file at path replacing the matching default. An empty path skips the file.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return catalog, fmt.Errorf("error reading catalog file '%s': %w", path, err)
	}
	return mergeCatalog(catalog, data, path)
}

func mergeCatalog(catalog Catalog, data []byte, path string) (Catalog, error) {
	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return catalog, fmt.Errorf("error parsing catalog file '%s': %w", path, err)
	}

	if len(override.Identifiers) > 0 {
		catalog.Identifiers = override.Identifiers
	}
	if len(override.ExchangeLocations) > 0 {
		catalog.ExchangeLocations = maps.Clone(override.ExchangeLocations)
	}
	if len(override.Categories) > 0 {
		catalog.Categories = maps.Clone(override.Categories)
	}
	log.Printf("Catalog loaded from %s: %d identifiers, %d exchanges, %d categories",
		path, len(catalog.Identifiers), len(catalog.ExchangeLocations), len(catalog.Categories))
	return catalog, nil
}
