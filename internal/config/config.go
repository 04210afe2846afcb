// Package config loads the immutable startup configuration described in
// spec.md §6. Unlike the env-var configuration this package's teacher
// used for its own secondary services, the primary Config here is
// loaded once from a JSON file and passed by reference to every
// constructor that needs it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the immutable set of values read from the startup JSON
// file. Field names match the keys listed in spec.md §6 exactly.
type Config struct {
	DBHost     string `json:"db_host"`
	DBPort     int    `json:"db_port"`
	DBName     string `json:"db_name"`
	DBUser     string `json:"db_user"`
	DBPass     string `json:"db_pass"`

	SSLKey string `json:"ssl_key"`
	SSLCrt string `json:"ssl_crt"`
	SSLCA  string `json:"ssl_ca"`

	BotName       string `json:"bot_name"`
	BotColor      string `json:"bot_color"`
	MaxChatLength int    `json:"max_chat_length"`

	YoutubeClientID     string `json:"youtube_client_id"`
	YoutubeClientSecret string `json:"youtube_client_secret"`

	PayPalLive         bool   `json:"paypal_live"`
	PayPalClientID     string `json:"paypal_client_id"`
	PayPalClientSecret string `json:"paypal_client_secret"`

	// RedisURL, if set, fronts the Google id-token cache with Redis
	// instead of relying solely on the Postgres google_ids table.
	RedisURL string `json:"redis_url"`

	// GoogleClientID/Secret and SessionSecret/BaseURL drive
	// internal/httpapi's browser OAuth login dance; AdminKey gates its
	// read-only admin snapshot endpoint.
	GoogleOAuthClientID     string `json:"google_oauth_client_id"`
	GoogleOAuthClientSecret string `json:"google_oauth_client_secret"`
	SessionSecret           string `json:"session_secret"`
	BaseURL                 string `json:"base_url"`
	AdminKey                string `json:"admin_key"`
}

// Load reads and parses the JSON file at path into an immutable Config,
// validating the fields the rest of the system cannot run without.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"db_host":  c.DBHost,
		"db_name":  c.DBName,
		"db_user":  c.DBUser,
		"bot_name": c.BotName,
	}

	for key, val := range required {
		if val == "" {
			return fmt.Errorf("config: missing required field %q", key)
		}
	}

	if c.MaxChatLength <= 0 {
		return fmt.Errorf("config: max_chat_length must be positive")
	}

	return nil
}

// HasSSL reports whether TLS material is present for the WebSocket
// listeners. Both key and certificate are required; the CA is optional.
func (c *Config) HasSSL() bool {
	return c.SSLKey != "" && c.SSLCrt != ""
}

const (
	// ChatPort is the production chat WebSocket listen port (spec.md §6).
	ChatPort = 2002
	// OverlayPort is the production overlay WebSocket listen port.
	OverlayPort = 2001
	// RESTPort is internal/httpapi's listen port (SPEC_FULL.md's domain
	// stack addition: OAuth login + admin snapshot feed).
	RESTPort = 2003
)

// ChatListenPort returns the port to bind the chat WebSocket on,
// honoring a development-only override (see SPEC_FULL.md §4.7); the
// production default is ChatPort.
func ChatListenPort() int {
	return envPortOr("KCCHAT_CHAT_PORT", ChatPort)
}

// OverlayListenPort is the overlay equivalent of ChatListenPort.
func OverlayListenPort() int {
	return envPortOr("KCCHAT_OVERLAY_PORT", OverlayPort)
}

// RESTListenPort is the REST surface equivalent of ChatListenPort.
func RESTListenPort() int {
	return envPortOr("KCCHAT_REST_PORT", RESTPort)
}

func envPortOr(envVar string, fallback int) int {
	v := os.Getenv(envVar)
	if v == "" {
		return fallback
	}
	var port int
	if _, err := fmt.Sscanf(v, "%d", &port); err != nil || port <= 0 {
		return fallback
	}
	return port
}
