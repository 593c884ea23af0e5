package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config represents the configuration for the dashboard engine.
type Config struct {
	// Gateway settings
	APIBaseURL string        `json:"api_base_url"` // Weather/geocoding gateway base URL
	APITimeout time.Duration `json:"api_timeout"`  // Timeout for gateway calls

	// Search settings
	SearchDebounce   time.Duration `json:"search_debounce"`    // Quiet period after the last keystroke before a live search fires
	SearchMinChars   int           `json:"search_min_chars"`   // Minimum query length that triggers a live search
	GeocodeRateRPS   float64       `json:"geocode_rate_rps"`   // Allowed geocode searches per second
	GeocodeRateBurst int           `json:"geocode_rate_burst"` // Geocode search burst headroom

	// Display settings
	ClockInterval time.Duration `json:"clock_interval"` // Header clock refresh interval

	// Location settings
	LocationSource string  `json:"location_source"` // Startup location source: ip, manual, or none
	Latitude       float64 `json:"latitude"`        // Startup latitude for the manual source
	Longitude      float64 `json:"longitude"`       // Startup longitude for the manual source
	IPLookupURL    string  `json:"ip_lookup_url"`   // Lookup endpoint for the ip source

	// Web server settings
	HTTPPort int `json:"http_port"` // Port for the dashboard web server (0 = disabled)

	// History settings
	PostgresConnString string `json:"postgres_conn_string"` // PostgreSQL connection string (empty = history disabled)
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:         "http://localhost:5000",
		APITimeout:         10 * time.Second,
		SearchDebounce:     300 * time.Millisecond,
		SearchMinChars:     2,
		GeocodeRateRPS:     2.0,
		GeocodeRateBurst:   3,
		ClockInterval:      60 * time.Second,
		LocationSource:     "ip",
		Latitude:           56.9496, // Riga, Latvia
		Longitude:          24.1052, // Riga, Latvia
		IPLookupURL:        "http://ip-api.com/json",
		HTTPPort:           8098,
		PostgresConnString: "",
	}
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	config := DefaultConfig()

	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a JSON file.
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	return c.SaveConfigToWriter(file)
}

// SaveConfigToWriter saves the configuration to an io.Writer.
func (c *Config) SaveConfigToWriter(writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config JSON: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration fields from STRATUSDECK_* environment
// variables. Environment values take precedence over file values.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("STRATUSDECK_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("STRATUSDECK_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STRATUSDECK_HTTP_PORT: %w", err)
		}
		c.HTTPPort = port
	}
	if v := os.Getenv("STRATUSDECK_POSTGRES_CONN_STRING"); v != "" {
		c.PostgresConnString = v
	}
	if v := os.Getenv("STRATUSDECK_LOCATION_SOURCE"); v != "" {
		c.LocationSource = v
	}
	if v := os.Getenv("STRATUSDECK_LATITUDE"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid STRATUSDECK_LATITUDE: %w", err)
		}
		c.Latitude = lat
	}
	if v := os.Getenv("STRATUSDECK_LONGITUDE"); v != "" {
		lon, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid STRATUSDECK_LONGITUDE: %w", err)
		}
		c.Longitude = lon
	}
	if v := os.Getenv("STRATUSDECK_IP_LOOKUP_URL"); v != "" {
		c.IPLookupURL = v
	}
	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url cannot be empty")
	}

	if _, err := url.Parse(c.APIBaseURL); err != nil {
		return fmt.Errorf("invalid api_base_url: %w", err)
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be greater than 0, got: %s", c.APITimeout)
	}

	if c.SearchDebounce <= 0 {
		return fmt.Errorf("search_debounce must be greater than 0, got: %s", c.SearchDebounce)
	}

	if c.SearchMinChars < 1 {
		return fmt.Errorf("search_min_chars must be at least 1, got: %d", c.SearchMinChars)
	}

	if c.GeocodeRateRPS <= 0 {
		return fmt.Errorf("geocode_rate_rps must be greater than 0, got: %f", c.GeocodeRateRPS)
	}

	if c.GeocodeRateBurst < 1 {
		return fmt.Errorf("geocode_rate_burst must be at least 1, got: %d", c.GeocodeRateBurst)
	}

	if c.ClockInterval <= 0 {
		return fmt.Errorf("clock_interval must be greater than 0, got: %s", c.ClockInterval)
	}

	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 0 and 65535, got: %d", c.HTTPPort)
	}

	// Validate location source
	validSources := map[string]bool{
		"ip":     true,
		"manual": true,
		"none":   true,
	}
	if !validSources[c.LocationSource] {
		return fmt.Errorf("invalid location_source: %s, must be one of: ip, manual, none", c.LocationSource)
	}

	if c.LocationSource == "manual" {
		if c.Latitude < -90 || c.Latitude > 90 {
			return fmt.Errorf("latitude must be between -90 and 90, got: %f", c.Latitude)
		}
		if c.Longitude < -180 || c.Longitude > 180 {
			return fmt.Errorf("longitude must be between -180 and 180, got: %f", c.Longitude)
		}
	}

	if c.LocationSource == "ip" && c.IPLookupURL == "" {
		return fmt.Errorf("ip_lookup_url cannot be empty when location_source is ip")
	}

	return nil
}

// MarshalJSON implements custom JSON marshaling to handle durations.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		*Alias
		APITimeout     string `json:"api_timeout"`
		SearchDebounce string `json:"search_debounce"`
		ClockInterval  string `json:"clock_interval"`
	}{
		Alias:          (*Alias)(c),
		APITimeout:     c.APITimeout.String(),
		SearchDebounce: c.SearchDebounce.String(),
		ClockInterval:  c.ClockInterval.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling to handle durations.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		*Alias
		APITimeout     string `json:"api_timeout"`
		SearchDebounce string `json:"search_debounce"`
		ClockInterval  string `json:"clock_interval"`
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if aux.APITimeout != "" {
		if c.APITimeout, err = time.ParseDuration(aux.APITimeout); err != nil {
			return fmt.Errorf("invalid api_timeout: %w", err)
		}
	}

	if aux.SearchDebounce != "" {
		if c.SearchDebounce, err = time.ParseDuration(aux.SearchDebounce); err != nil {
			return fmt.Errorf("invalid search_debounce: %w", err)
		}
	}

	if aux.ClockInterval != "" {
		if c.ClockInterval, err = time.ParseDuration(aux.ClockInterval); err != nil {
			return fmt.Errorf("invalid clock_interval: %w", err)
		}
	}

	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
