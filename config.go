package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	TelegramToken    string    `json:"telegram_token"`
	StorageDir       string    `json:"storage_dir"`
	LogLevel         string    `json:"log_level"`
	ImapAddress      string    `json:"imap_address"`
	ImapUsername     string    `json:"imap_username"`
	ImapPassword     string    `json:"imap_password"`
	IngestInterval   string    `json:"ingest_interval"`
	ReminderInterval string    `json:"reminder_interval"`
	ReminderAfter    TimeOfDay `json:"reminder_after"`
	ReminderBefore   TimeOfDay `json:"reminder_before"`
}

var config Config

// loadConfig reads .env (if any), then the JSON config file, falling back to
// environment variables and writing a default file on first run.
func loadConfig() error {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("loaded .env file")
	}
	filePath := os.Getenv("SOLIQ_BOT_CONFIG_FILE")
	if filePath == "" {
		filePath = "config.json"
	}
	configFile, err := os.Open(filePath)
	if err != nil {
		defaultConfig := Config{
			TelegramToken:    os.Getenv("SOLIQ_BOT_TOKEN"),
			StorageDir:       os.Getenv("SOLIQ_BOT_STORAGE_DIR"),
			LogLevel:         "info",
			IngestInterval:   "10m0s",
			ReminderInterval: "1h0m0s",
			ReminderAfter:    TimeOfDay{Hour: 9},
			ReminderBefore:   TimeOfDay{Hour: 21},
		}
		defaultConfigFile, _ := os.Create(filePath)
		enc := json.NewEncoder(defaultConfigFile)
		enc.SetIndent("", "  ")
		enc.Encode(defaultConfig)
		defaultConfigFile.Close()
		logrus.WithField("path", filePath).Info("created default config file")
		config = defaultConfig
		if config.TelegramToken != "" {
			// fully configured through the environment, no file needed
			return nil
		}
		return err
	}
	defer configFile.Close()
	byteValue, _ := io.ReadAll(configFile)
	if err := json.Unmarshal(byteValue, &config); err != nil {
		return err
	}
	if config.TelegramToken == "" {
		config.TelegramToken = os.Getenv("SOLIQ_BOT_TOKEN")
	}
	if config.StorageDir == "" {
		config.StorageDir = os.Getenv("SOLIQ_BOT_STORAGE_DIR")
	}
	return nil
}

func configureLogging() {
	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
