package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Config holds all settings of the app. Values come from the environment
// (prefix LOOPLIFE) with a .config.json file taking precedence when present,
// so containerized deployments work without a file and local setups can pin
// everything in one place.
type Config struct {
	Port     int    `json:"port" envconfig:"PORT" default:"1111"`
	Env      string `json:"env" envconfig:"ENV" default:"dev"`
	LogLevel string `json:"log_level" envconfig:"LOG_LEVEL" default:"debug"`
	Pepper   string `json:"pepper" envconfig:"PEPPER" default:"secret-random-string"`
	HMACKey  string `json:"hmac_key" envconfig:"HMAC_KEY" default:"secret-hmac-key"`
	CSRFKey  string `json:"csrf_key" envconfig:"CSRF_KEY" default:"32-byte-long-auth-key-for-csrf!!"`

	Mail     MailConfig     `json:"mail"`
	Database PostgresConfig `json:"database"`
}

// IsProd reports whether the app runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// MailConfig holds the outbound mail settings. An empty api key means mails
// go to the log instead.
type MailConfig struct {
	ResendAPIKey string `json:"resend_api_key" envconfig:"RESEND_API_KEY" default:""`
	From         string `json:"from" envconfig:"MAIL_FROM" default:"Loop Life <noreply@looplife.local>"`
}

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	Host     string `json:"host" envconfig:"DB_HOST" default:"localhost"`
	Port     int    `json:"port" envconfig:"DB_PORT" default:"5432"`
	User     string `json:"user" envconfig:"DB_USER" default:"postgres"`
	Password string `json:"password" envconfig:"DB_PASSWORD" default:""`
	Name     string `json:"name" envconfig:"DB_NAME" default:"loop_life"`
}

// ConnectionInfo builds the postgres connection string.
func (pc PostgresConfig) ConnectionInfo() string {
	if pc.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Password, pc.Name)
}

// LoadConfig assembles the configuration. In production the .config.json
// file is required, running on built-in defaults there would mean default
// secrets.
func LoadConfig(prod bool) Config {
	var c Config
	if err := envconfig.Process("looplife", &c); err != nil {
		panic(err)
	}

	f, err := os.Open(".config.json")
	if err != nil {
		if prod {
			panic("no .config.json file found, it is required in production")
		}
		log.Info("no .config.json found, using env/default config")
		return c
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&c); err != nil {
		panic(err)
	}
	log.Info("successfully loaded .config.json")
	return c
}
