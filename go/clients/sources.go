package clients

// ExternalSource represents different external product catalogs
type ExternalSource string

const (
	// ExternalSourceFakeStore is fakestoreapi.com, the default catalog
	ExternalSourceFakeStore ExternalSource = "fakestore"

	// ExternalSourceCustom is any self-hosted catalog exposing the same /products shape
	ExternalSourceCustom ExternalSource = "custom"
)

// ExternalSourceConfig holds configuration for external sources
type ExternalSourceConfig struct {
	Source      ExternalSource `json:"source" yaml:"source"`
	Name        string         `json:"name" yaml:"name"`
	BaseURL     string         `json:"base_url" yaml:"base_url"`
	Description string         `json:"description" yaml:"description"`
}

// GetExternalSources returns all known catalog sources
func GetExternalSources() map[ExternalSource]ExternalSourceConfig {
	return map[ExternalSource]ExternalSourceConfig{
		ExternalSourceFakeStore: {
			Source:      ExternalSourceFakeStore,
			Name:        "Fake Store API",
			BaseURL:     "https://fakestoreapi.com",
			Description: "Public demo catalog with titles, images and prices",
		},
		ExternalSourceCustom: {
			Source:      ExternalSourceCustom,
			Name:        "Custom catalog",
			Description: "Any catalog serving GET /products in the Fake Store format",
		},
	}
}

// ValidateExternalSource checks if the source is valid
func ValidateExternalSource(source ExternalSource) bool {
	_, exists := GetExternalSources()[source]
	return exists
}

// ResolveBaseURL returns the base URL for source, preferring an explicit override.
func ResolveBaseURL(source ExternalSource, override string) string {
	if override != "" {
		return override
	}
	return GetExternalSources()[source].BaseURL
}
