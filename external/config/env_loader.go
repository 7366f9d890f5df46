package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/programmingdumpster/partybot/internal/config"
)

type envConfig struct {
	Env                     string `env:"ENV" envDefault:"production"`
	DiscordToken            string `env:"DISCORD_TOKEN,required"`
	DiscordGuildID          string `env:"DISCORD_GUILD_ID,required"`
	CommandPrefix           string `env:"COMMAND_PREFIX" envDefault:"!"`
	AnnouncementChannelName string `env:"ANNOUNCEMENT_CHANNEL_NAME" envDefault:"szukam-party"`
	CreationChannelName     string `env:"CREATION_CHANNEL_NAME" envDefault:"stworz-party"`
	StoreBackend            string `env:"STORE_BACKEND" envDefault:"file"`
	DataDir                 string `env:"DATA_DIR" envDefault:"data"`
	PartyDataFile           string `env:"PARTY_DATA_FILE" envDefault:"active_parties.json"`
	DatabaseURL             string `env:"DATABASE_URL"`
	PartyLifespanHours      int    `env:"PARTY_LIFESPAN_HOURS" envDefault:"4"`
	ReminderLeadHours       int    `env:"EXTENSION_REMINDER_HOURS_BEFORE_EXPIRY" envDefault:"1"`
	ExtensionWindowHours    int    `env:"EXTENSION_WINDOW_HOURS" envDefault:"1"`
	ExtendByHours           int    `env:"PARTY_EXTEND_BY_HOURS" envDefault:"2"`
	CheckIntervalMinutes    int    `env:"EXTENSION_CHECK_LOOP_MINUTES" envDefault:"5"`
	MaxPartyNameLength      int    `env:"MAX_PARTY_NAME_LENGTH" envDefault:"50"`
	JoinRequestTimeoutHrs   int    `env:"JOIN_REQUEST_TIMEOUT_HOURS" envDefault:"12"`
	CreationStepTimeoutSec  int    `env:"CREATION_STEP_TIMEOUT_SECONDS" envDefault:"180"`
	DMDeleteDelaySec        int    `env:"DM_MESSAGE_DELETE_DELAY_SECONDS" envDefault:"10"`
	AffirmativeToken        string `env:"EXTENSION_AFFIRMATIVE" envDefault:"tak"`
	NegativeToken           string `env:"EXTENSION_NEGATIVE" envDefault:"nie"`
	GamesFile               string `env:"GAMES_FILE"`
	MetricsAddr             string `env:"METRICS_ADDR" envDefault:":8081"`
	EventWebhookURL         string `env:"EVENT_WEBHOOK_URL"`
	NATSURL                 string `env:"NATS_URL"`
	NATSSubjectPrefix       string `env:"NATS_SUBJECT_PREFIX" envDefault:"partybot"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                     raw.Env,
		DiscordToken:            raw.DiscordToken,
		DiscordGuildID:          raw.DiscordGuildID,
		CommandPrefix:           raw.CommandPrefix,
		AnnouncementChannelName: raw.AnnouncementChannelName,
		CreationChannelName:     raw.CreationChannelName,
		StoreBackend:            raw.StoreBackend,
		DataDir:                 raw.DataDir,
		PartyDataFile:           raw.PartyDataFile,
		DatabaseURL:             raw.DatabaseURL,
		PartyLifespanHours:      raw.PartyLifespanHours,
		ReminderLeadHours:       raw.ReminderLeadHours,
		ExtensionWindowHours:    raw.ExtensionWindowHours,
		ExtendByHours:           raw.ExtendByHours,
		CheckIntervalMinutes:    raw.CheckIntervalMinutes,
		MaxPartyNameLength:      raw.MaxPartyNameLength,
		JoinRequestTimeoutHrs:   raw.JoinRequestTimeoutHrs,
		CreationStepTimeoutSec:  raw.CreationStepTimeoutSec,
		DMDeleteDelaySec:        raw.DMDeleteDelaySec,
		AffirmativeToken:        raw.AffirmativeToken,
		NegativeToken:           raw.NegativeToken,
		GamesFile:               raw.GamesFile,
		MetricsAddr:             raw.MetricsAddr,
		EventWebhookURL:         raw.EventWebhookURL,
		NATSURL:                 raw.NATSURL,
		NATSSubjectPrefix:       raw.NATSSubjectPrefix,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
