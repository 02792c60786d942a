package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	// ゾーン情報を埋め込む
	_ "time/tzdata"

	"github.com/hitoshi/sleeplog/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	// DBConnectAttempts は起動時のDB疎通確認の最大試行回数。
	DBConnectAttempts int

	// Server
	ServerPort        string
	CORSAllowedOrigin string

	// Rate Limit（req/min/client）
	RateLimitGeneral int
	RateLimitWrite   int

	// Logging
	LogLevel string

	// App
	// Timezone は「今日」を決めるタイムゾーン名。Locationはその解決結果。
	Timezone string
	Location *time.Location
}

// fileConfig はYAML設定ファイルの構造。
type fileConfig struct {
	Database struct {
		URL             string `yaml:"url"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		ConnectAttempts int    `yaml:"connect_attempts"`
	} `yaml:"database"`
	Server struct {
		Port              string `yaml:"port"`
		CORSAllowedOrigin string `yaml:"cors_allowed_origin"`
	} `yaml:"server"`
	RateLimit struct {
		General int `yaml:"general"`
		Write   int `yaml:"write"`
	} `yaml:"rate_limit"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	App struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"app"`
}

// defaults は組み込みのデフォルト設定を返す。
func defaults() *Config {
	return &Config{
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: 30 * time.Minute,
		DBConnectAttempts: 3,
		ServerPort:        "8080",
		CORSAllowedOrigin: "*",
		RateLimitGeneral:  120,
		RateLimitWrite:    20,
		LogLevel:          "info",
		Timezone:          "UTC",
	}
}

// Load は設定を読み込む。
// 優先順位はデフォルト < YAMLファイル < 環境変数。
// pathが空の場合はCONFIG_FILE環境変数を参照し、それも空ならファイルは読まない。
// 必須項目が未設定、または値が不正な場合はエラーを返す。
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile はYAMLファイルの値で設定を上書きする。ファイルに無い項目は変更しない。
func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.DatabaseURL, fc.Database.URL)
	setInt(&c.DBMaxOpenConns, fc.Database.MaxOpenConns)
	setInt(&c.DBMaxIdleConns, fc.Database.MaxIdleConns)
	if fc.Database.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(fc.Database.ConnMaxLifetime)
		if err != nil {
			return fmt.Errorf("invalid database.conn_max_lifetime %q: %w", fc.Database.ConnMaxLifetime, err)
		}
		c.DBConnMaxLifetime = d
	}
	setInt(&c.DBConnectAttempts, fc.Database.ConnectAttempts)
	setString(&c.ServerPort, fc.Server.Port)
	setString(&c.CORSAllowedOrigin, fc.Server.CORSAllowedOrigin)
	setInt(&c.RateLimitGeneral, fc.RateLimit.General)
	setInt(&c.RateLimitWrite, fc.RateLimit.Write)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.Timezone, fc.App.Timezone)

	return nil
}

// applyEnv は環境変数の値で設定を上書きする。
func (c *Config) applyEnv() {
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.DBMaxOpenConns)
	c.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.DBMaxIdleConns)
	c.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.DBConnMaxLifetime)
	c.DBConnectAttempts = getEnvInt("DB_CONNECT_ATTEMPTS", c.DBConnectAttempts)
	c.ServerPort = getEnvString("SERVER_PORT", c.ServerPort)
	c.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", c.CORSAllowedOrigin)
	c.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", c.RateLimitGeneral)
	c.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", c.RateLimitWrite)
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnvString("APP_TIMEZONE", c.Timezone)
}

// validate は必須項目と値の範囲を検証し、タイムゾーンを解決する。
func (c *Config) validate() error {
	var problems []string

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if port, err := strconv.Atoi(c.ServerPort); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("SERVER_PORT %q is not a valid port", c.ServerPort))
	}
	if c.DBMaxOpenConns < 1 {
		problems = append(problems, "DB_MAX_OPEN_CONNS must be positive")
	}
	if c.DBMaxIdleConns < 0 {
		problems = append(problems, "DB_MAX_IDLE_CONNS must not be negative")
	}
	if c.DBConnectAttempts < 1 {
		problems = append(problems, "DB_CONNECT_ATTEMPTS must be positive")
	}
	if c.RateLimitGeneral < 1 {
		problems = append(problems, "RATE_LIMIT_GENERAL must be positive")
	}
	if c.RateLimitWrite < 1 {
		problems = append(problems, "RATE_LIMIT_WRITE must be positive")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q must be one of debug, info, warn, error", c.LogLevel))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		problems = append(problems, fmt.Sprintf("APP_TIMEZONE %q is not a known time zone", c.Timezone))
	} else {
		c.Location = loc
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
