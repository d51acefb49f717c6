// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package app defines global configuration models and config loading helpers.
package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	envKey  = "RUN_ENV"
	nameKey = "APP_NAME"
)

// config stores the singleton configuration loaded by LoadConfig.
var config *Config

type (
	// Config is the root configuration model loaded from bin/configs/*.json.
	Config struct {
		System Sys    `json:"system"` // Application runtime settings.
		Log    Log    `json:"log"`    // Logger output settings.
		Mongo  Mongo  `json:"mongo"`  // Mongo connection settings.
		Store  Store  `json:"store"`  // Job-store tuning knobs.
		Redis  []Redis `json:"redis"` // Redis client settings.
		Feishu Feishu `json:"feishu"` // Feishu integration settings.
	}

	// Log controls logger driver and severity level.
	Log struct {
		Driver  string `json:"driver"` // Logger driver, such as "stdout" or "file".
		Level   string `json:"level"`  // Log level: debug, info, warn, error, fatal.
		LogPath string `json:"path"`   // Log file path when driver is "file".
	}

	// Sys stores basic runtime properties for the service.
	Sys struct {
		Name         string        `json:"name"`          // Service name.
		RunMode      string        `json:"run_mode"`      // Gin run mode.
		HTTPPort     string        `json:"http_port"`     // HTTP listen address.
		ReadTimeout  time.Duration `json:"read_timeout"`  // Maximum request read timeout in seconds.
		WriteTimeout time.Duration `json:"write_timeout"` // Maximum response write timeout in seconds.
		Version      string        `json:"version"`       // Service version.
		RootPath     string        `json:"root_path"`     // Runtime root path.
		DebugMode    bool          `json:"debug_mode"`    // Debug mode toggle.
		EnvKey       string        `json:"env_key"`       // Environment variable key that stores run env.
		Env          string        `json:"env"`           // Resolved runtime environment.
	}

	// Mongo stores the single document-store connection this service depends
	// on (spec: one shared document database across the cluster).
	Mongo struct {
		URI                   string        `json:"uri"`                       // Mongo connection URI.
		Database              string        `json:"database"`                  // Database name.
		ConnectTimeout        time.Duration `json:"connect_timeout,omitempty"` // Connection establishment timeout in seconds.
		MaxPoolSize           uint64        `json:"max_pool_size,omitempty"`   // Maximum pooled connections.
		ConnectRetryCount     int           `json:"connect_retry_count,omitempty"`
		ConnectRetryInterval  int           `json:"connect_retry_interval,omitempty"` // Retry interval in seconds.
	}

	// Store configures the scheduling protocol's tunable thresholds
	// (spec §4: misfire threshold, trigger/job lock timeouts).
	Store struct {
		InstanceID        string        `json:"instance_id"`         // This node's cluster identity; required (store.New rejects an empty value).
		CollectionPrefix  string        `json:"collection_prefix"`   // Prefix applied to every collection name.
		MisfireThreshold  time.Duration `json:"misfire_threshold"`   // How late a fire may run before it is considered misfired, in seconds.
		TriggerLockTimeout time.Duration `json:"trigger_lock_timeout"` // How long a trigger lock is honored before being reclaimed, in seconds.
		JobLockTimeout    time.Duration `json:"job_lock_timeout"`    // How long a job-concurrency lock is honored before being reclaimed, in seconds.
	}

	// Redis stores one Redis connection profile, used for the optional
	// paused-group read-through cache.
	Redis struct {
		Name        string        `json:"name"`         // Redis connection alias.
		Enable      bool          `json:"enable"`       // Whether this Redis profile is enabled.
		Host        string        `json:"host"`         // Redis host.
		Auth        string        `json:"auth"`         // Redis password or auth token.
		MaxIdle     int           `json:"max_idle"`     // Maximum idle connections.
		MaxActive   int           `json:"max_active"`   // Maximum active connections.
		IdleTimeout time.Duration `json:"idle_timeout"` // Idle timeout in minutes.
		Prefix      string        `json:"prefix"`       // Redis key prefix.
		DB          int           `json:"db"`
	}

	// Feishu configures the optional group-webhook signaler.
	Feishu struct {
		Enable       bool   `json:"enable"`
		GroupWebhook string `json:"group_webhook"`
		AppID        string `json:"app_id"`
		AppSecret    string `json:"app_secret"`
		EncryptKey   string `json:"encrypt_key"`
	}
)

// LoadConfig loads configuration from bin/configs/<RUN_ENV>.json.
//
// Returns:
//   - *Config: parsed configuration instance also stored globally.
//   - error: returned when reading or decoding configuration fails.
//
// Behavior:
//   - Uses "local" when RUN_ENV is not provided.
//   - Applies APP_NAME override when present.
//
// Example:
//
//	cfg, err := app.LoadConfig()
//	if err != nil {
//		panic(err)
//	}
func LoadConfig() (*Config, error) {
	var (
		runEnv     string
		appName    string
		rootPath   string
		cfgContent []byte
		err        error
	)

	runEnv = os.Getenv(envKey)
	if runEnv == "" {
		runEnv = "local"
	}

	rootPath, err = os.Getwd()
	if err != nil {
		log.Fatalf("无法获取工作目录: %v", err)
	}

	// Build the environment-specific configuration file path.
	configFilePath := filepath.Join(rootPath, "bin", "configs", fmt.Sprintf("%s.json", runEnv))
	cfgContent, err = os.ReadFile(configFilePath)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(cfgContent, &config)
	if err != nil {
		return nil, err
	}

	appName = os.Getenv(nameKey)
	if appName != "" {
		config.System.Name = appName
	}

	config.System.Env = runEnv
	config.System.RootPath = rootPath
	config.System.EnvKey = envKey

	checkConfig(config)

	return config, nil
}

// checkConfig validates required runtime configuration fields.
//
// Parameters:
//   - conf: configuration object to validate.
//
// Returns:
//   - None.
func checkConfig(conf *Config) {
	if conf.Mongo.URI == "" {
		log.Panicf("Mongo.URI can not be null")
	}
	if conf.Mongo.Database == "" {
		log.Panicf("Mongo.Database can not be null")
	}
}

// GetConfig returns the globally loaded configuration singleton.
//
// Returns:
//   - *Config: configuration instance loaded by LoadConfig.
func GetConfig() *Config {
	return config
}
