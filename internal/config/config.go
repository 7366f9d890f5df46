package config

import (
	"fmt"
	"time"
)

const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

type Config struct {
	Env            string
	DiscordToken   string
	DiscordGuildID string
	CommandPrefix  string

	AnnouncementChannelName string
	CreationChannelName     string

	StoreBackend  string
	DataDir       string
	PartyDataFile string
	DatabaseURL   string

	PartyLifespanHours     int
	ReminderLeadHours      int
	ExtensionWindowHours   int
	ExtendByHours          int
	CheckIntervalMinutes   int
	MaxPartyNameLength     int
	JoinRequestTimeoutHrs  int
	CreationStepTimeoutSec int
	DMDeleteDelaySec       int

	AffirmativeToken string
	NegativeToken    string

	GamesFile         string
	MetricsAddr       string
	EventWebhookURL   string
	NATSURL           string
	NATSSubjectPrefix string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.StoreBackend {
	case StoreBackendFile:
		if c.PartyDataFile == "" {
			return fmt.Errorf("PARTY_DATA_FILE is required when STORE_BACKEND=file")
		}
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendFile, StoreBackendPostgres, c.StoreBackend)
	}
	for _, p := range c.positiveFieldChecks() {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	if c.MaxPartyNameLength > 100 {
		return fmt.Errorf("MAX_PARTY_NAME_LENGTH must be at most 100, got %d", c.MaxPartyNameLength)
	}
	if c.DMDeleteDelaySec < 0 {
		return fmt.Errorf("DM_MESSAGE_DELETE_DELAY_SECONDS must not be negative, got %d", c.DMDeleteDelaySec)
	}
	if c.AffirmativeToken == c.NegativeToken {
		return fmt.Errorf("EXTENSION_AFFIRMATIVE and EXTENSION_NEGATIVE must differ")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DISCORD_GUILD_ID", value: c.DiscordGuildID},
		{name: "ANNOUNCEMENT_CHANNEL_NAME", value: c.AnnouncementChannelName},
		{name: "CREATION_CHANNEL_NAME", value: c.CreationChannelName},
		{name: "EXTENSION_AFFIRMATIVE", value: c.AffirmativeToken},
		{name: "EXTENSION_NEGATIVE", value: c.NegativeToken},
	}
}

type positiveEnvField struct {
	name  string
	value int
}

func (c *Config) positiveFieldChecks() []positiveEnvField {
	return []positiveEnvField{
		{name: "PARTY_LIFESPAN_HOURS", value: c.PartyLifespanHours},
		{name: "EXTENSION_REMINDER_HOURS_BEFORE_EXPIRY", value: c.ReminderLeadHours},
		{name: "EXTENSION_WINDOW_HOURS", value: c.ExtensionWindowHours},
		{name: "PARTY_EXTEND_BY_HOURS", value: c.ExtendByHours},
		{name: "EXTENSION_CHECK_LOOP_MINUTES", value: c.CheckIntervalMinutes},
		{name: "MAX_PARTY_NAME_LENGTH", value: c.MaxPartyNameLength},
		{name: "JOIN_REQUEST_TIMEOUT_HOURS", value: c.JoinRequestTimeoutHrs},
		{name: "CREATION_STEP_TIMEOUT_SECONDS", value: c.CreationStepTimeoutSec},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) PartyLifespan() time.Duration {
	return time.Duration(c.PartyLifespanHours) * time.Hour
}

func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadHours) * time.Hour
}

func (c *Config) ExtensionWindow() time.Duration {
	return time.Duration(c.ExtensionWindowHours) * time.Hour
}

func (c *Config) ExtendBy() time.Duration {
	return time.Duration(c.ExtendByHours) * time.Hour
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

func (c *Config) JoinRequestTimeout() time.Duration {
	return time.Duration(c.JoinRequestTimeoutHrs) * time.Hour
}

func (c *Config) CreationStepTimeout() time.Duration {
	return time.Duration(c.CreationStepTimeoutSec) * time.Second
}

func (c *Config) DMDeleteDelay() time.Duration {
	return time.Duration(c.DMDeleteDelaySec) * time.Second
}
