package types

import "time"

// HTTPConfig holds shared HTTP settings for stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperscout/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PubMedConfig holds settings for the PubMed fetch stage.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline"`

	// RetMax is the maximum number of PMIDs requested from esearch
	// (default 10000).
	RetMax int `json:"ret_max" yaml:"ret_max"`

	// BatchSize is the number of PMIDs per efetch request (default 200).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// APIKey is an optional NCBI API key. With a key E-utilities allows
	// 10 requests per second instead of 3.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// ContactEmail is sent as the `email` parameter per the E-utilities
	// usage guidelines. Optional.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`

	// MaxRetries is the retry budget for rate-limited requests (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ExportConfig holds settings for the output stage.
type ExportConfig struct {
	// Columns selects a predefined column set: default, all, or minimal.
	Columns string `json:"columns" yaml:"columns"`

	// CustomColumns is a comma-separated header list overriding Columns.
	CustomColumns string `json:"custom_columns,omitempty" yaml:"custom_columns,omitempty"`

	// IncludeAbstract appends the Abstract column.
	IncludeAbstract bool `json:"include_abstract" yaml:"include_abstract"`
}
