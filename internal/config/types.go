package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	Port   string
	User   UserConfig
	DBName string
	Turso  TursoConfig
	Local  LocalConfig
	Remote RemoteConfig
	R2     R2Config
	Slack  SlackConfig
	// ProjectID enables Pub/Sub publishing when set.
	ProjectID string
	Sync      SyncConfig
	// WriteRateLimit is the number of writes per second allowed per user.
	WriteRateLimit float64
}

// UserConfig is the identity this process acts for when a request carries
// no user headers.
type UserConfig struct {
	ID   string
	Name string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// LocalConfig selects the durable queue backend: sqlite, badger or memory.
type LocalConfig struct {
	Backend   string
	BadgerDir string
}

// RemoteConfig selects the remote store backend: mongo or memory.
type RemoteConfig struct {
	Backend  string
	MongoURI string
	MongoDB  string
}

type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether photo uploads are configured.
func (c R2Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != ""
}

type SlackConfig struct {
	Token     string
	ChannelID string
	// SigningSecret enables request verification on slash commands.
	SigningSecret string
}

type SyncConfig struct {
	InvitePollInterval time.Duration
	SweepInterval      time.Duration
	StartOnline        bool
}
