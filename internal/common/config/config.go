package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Export  ExportConfig  `mapstructure:"export"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RequestTimeout  int `mapstructure:"request_timeout"`  // seconds, covers a whole export
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // seconds
}

// CatalogConfig holds connection settings for the external catalog API.
type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // seconds, per page/count call
}

func (c CatalogConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ExportConfig tunes the export pipeline.
type ExportConfig struct {
	PageSize    int    `mapstructure:"page_size"`    // records per catalog page
	Workers     int    `mapstructure:"workers"`      // concurrent page fetches per round
	FileCeiling int    `mapstructure:"file_ceiling"` // max data rows per spreadsheet file
	RowWindow   int    `mapstructure:"row_window"`   // in-memory pending rows per file
	Prefix      string `mapstructure:"prefix"`       // artifact name prefix
	DateFormat  string `mapstructure:"date_format"`  // display format for date-bearing fields
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	JobTTL   int    `mapstructure:"job_ttl"` // seconds to keep export job records
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
