package config

import (
	"encoding/json"
	"os"

	"github.com/livepaste/livepaste/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. Interval fields are given in seconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct.
type JsonConfig struct {
	EndpointAddr             string `json:"endpoint_addr"`
	DatabaseDSN              string `json:"database_dsn"`
	SecretKey                string `json:"secret_key"`
	RoomTokenValiditySeconds int    `json:"room_token_validity_seconds"`
	RetentionHours           int    `json:"retention_hours"`
	TombstoneHorizon         int64  `json:"tombstone_horizon"`
	SweepIntervalSeconds     int    `json:"sweep_interval_seconds"`
	SessionTTLSeconds        int    `json:"session_ttl_seconds"`
	StaticAssetPath          string `json:"static_asset_path"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags.
// If neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	fileName := flagx.JsonConfigFlags()
	if fileName == "" {
		return
	}

	data, err := os.ReadFile(fileName)
	if err != nil {
		panic(err)
	}

	jc := &JsonConfig{}
	if err := json.Unmarshal(data, jc); err != nil {
		panic(err)
	}

	if jc.EndpointAddr != "" {
		config.EndpointAddr = jc.EndpointAddr
	}
	if jc.DatabaseDSN != "" {
		config.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.SecretKey != "" {
		config.SecretKey = jc.SecretKey
	}
	if jc.RoomTokenValiditySeconds > 0 {
		config.RoomTokenValidityDuration = secondsToDuration(jc.RoomTokenValiditySeconds)
	}
	if jc.RetentionHours > 0 {
		config.RetentionHours = jc.RetentionHours
	}
	if jc.TombstoneHorizon > 0 {
		config.TombstoneHorizon = jc.TombstoneHorizon
	}
	if jc.SweepIntervalSeconds > 0 {
		config.SweepInterval = secondsToDuration(jc.SweepIntervalSeconds)
	}
	if jc.SessionTTLSeconds > 0 {
		config.SessionTTL = secondsToDuration(jc.SessionTTLSeconds)
	}
	if jc.StaticAssetPath != "" {
		config.StaticAssetPath = jc.StaticAssetPath
	}
}
