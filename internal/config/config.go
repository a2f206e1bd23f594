// Package config loads the weathervaned JSON configuration through viper and
// exposes typed views of the sections the rest of the service consumes.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// WeathervaneConfig holds the controller tunables.
type WeathervaneConfig struct {
	VehicleClass         string  `json:"vehicleClass" mapstructure:"vehicleClass"`
	Direction            string  `json:"direction" mapstructure:"direction"`
	Gain                 float64 `json:"gain" mapstructure:"gain"`
	MinDeadzoneAngleDeg  float64 `json:"minDeadzoneAngleDeg" mapstructure:"minDeadzoneAngleDeg"`
	MinHeightM           float64 `json:"minHeightM" mapstructure:"minHeightM"`
	MaxHorizontalSpeedMS float64 `json:"maxHorizontalSpeedMS" mapstructure:"maxHorizontalSpeedMS"`
	MaxVerticalSpeedMS   float64 `json:"maxVerticalSpeedMS" mapstructure:"maxVerticalSpeedMS"`
	MaxYawRateDS         float64 `json:"maxYawRateDS" mapstructure:"maxYawRateDS"`
}

// SimConfig holds the simulation harness settings.
type SimConfig struct {
	OriginLat        float64 `json:"originLat" mapstructure:"originLat"`
	OriginLon        float64 `json:"originLon" mapstructure:"originLon"`
	TickHz           float64 `json:"tickHz" mapstructure:"tickHz"`
	StartAltM        float64 `json:"startAltM" mapstructure:"startAltM"`
	WindSpeedMS      float64 `json:"windSpeedMS" mapstructure:"windSpeedMS"`
	WindDirectionDeg float64 `json:"windDirectionDeg" mapstructure:"windDirectionDeg"`
	TerrainEnabled   bool    `json:"terrainEnabled" mapstructure:"terrainEnabled"`
}

// MemoryConfig holds in-memory/JSON flight-log backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite flight-log backend settings.
type SQLiteConfig struct {
	DumpInterval time.Duration
	DumpPath     string
}

// StorageConfig selects and configures the flight-log backend.
type StorageConfig struct {
	Type   string
	Memory MemoryConfig
	SQLite SQLiteConfig
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// FleetConfig holds fleet-server upload settings.
type FleetConfig struct {
	Enabled   bool
	ServerURL string
	APIKey    string
}

// Load reads configuration from the JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./wvlogs")

	viper.SetDefault("weathervane.vehicleClass", "multirotor")
	viper.SetDefault("weathervane.direction", "nose_in")
	viper.SetDefault("weathervane.gain", 0.5)
	viper.SetDefault("weathervane.minDeadzoneAngleDeg", 1.0)
	viper.SetDefault("weathervane.minHeightM", 2.0)
	viper.SetDefault("weathervane.maxHorizontalSpeedMS", 0.0)
	viper.SetDefault("weathervane.maxVerticalSpeedMS", 0.0)
	viper.SetDefault("weathervane.maxYawRateDS", 0.0)

	viper.SetDefault("sim.originLat", 32.0853)
	viper.SetDefault("sim.originLon", 34.7818)
	viper.SetDefault("sim.tickHz", 50.0)
	viper.SetDefault("sim.startAltM", 30.0)
	viper.SetDefault("sim.windSpeedMS", 6.0)
	viper.SetDefault("sim.windDirectionDeg", 90.0)
	viper.SetDefault("sim.terrainEnabled", true)

	viper.SetDefault("api.listenAddr", ":8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "weathervane")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "weathervane-metrics")
	viper.SetDefault("influx.sampleEveryN", 10)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./flightlogs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./flightlogs/weathervane.db")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "weathervaned")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("fleet.enabled", false)
	viper.SetDefault("fleet.serverUrl", "http://localhost:5000")
	viper.SetDefault("fleet.apiKey", "")

	viper.SetConfigName("weathervaned.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetWeathervaneConfig returns the controller tunables.
func GetWeathervaneConfig() WeathervaneConfig {
	return WeathervaneConfig{
		VehicleClass:         viper.GetString("weathervane.vehicleClass"),
		Direction:            viper.GetString("weathervane.direction"),
		Gain:                 viper.GetFloat64("weathervane.gain"),
		MinDeadzoneAngleDeg:  viper.GetFloat64("weathervane.minDeadzoneAngleDeg"),
		MinHeightM:           viper.GetFloat64("weathervane.minHeightM"),
		MaxHorizontalSpeedMS: viper.GetFloat64("weathervane.maxHorizontalSpeedMS"),
		MaxVerticalSpeedMS:   viper.GetFloat64("weathervane.maxVerticalSpeedMS"),
		MaxYawRateDS:         viper.GetFloat64("weathervane.maxYawRateDS"),
	}
}

// GetSimConfig returns the simulation harness settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		OriginLat:        viper.GetFloat64("sim.originLat"),
		OriginLon:        viper.GetFloat64("sim.originLon"),
		TickHz:           viper.GetFloat64("sim.tickHz"),
		StartAltM:        viper.GetFloat64("sim.startAltM"),
		WindSpeedMS:      viper.GetFloat64("sim.windSpeedMS"),
		WindDirectionDeg: viper.GetFloat64("sim.windDirectionDeg"),
		TerrainEnabled:   viper.GetBool("sim.terrainEnabled"),
	}
}

// GetStorageConfig returns the flight-log storage settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetFleetConfig returns the fleet-server upload settings.
func GetFleetConfig() FleetConfig {
	return FleetConfig{
		Enabled:   viper.GetBool("fleet.enabled"),
		ServerURL: viper.GetString("fleet.serverUrl"),
		APIKey:    viper.GetString("fleet.apiKey"),
	}
}
