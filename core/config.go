package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	APIConfig struct {
		BaseURL string
		Timeout time.Duration // 0: no timeout
	}

	NotificationsConfig struct {
		PollInterval time.Duration
		DigestTo     string
	}

	SessionConfig struct {
		File string
	}

	DevAPIConfig struct {
		Address                   string
		SecretKey                 string
		JWTExpirationDelta        time.Duration
		PasswordResetTimeoutDelta time.Duration
		PasswordResetLink         string // fmt with the uid and the token
		UploadDir                 string
		DebugAddress              string // expvar; empty disables
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Driver string // memory, sqlite, postgres
		DSN    string
	}

	EmailConfig struct {
		SendgridKey      string
		DefaultFromEmail string
	}

	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		RollbarToken string
		PageSize     int
		Debounce     time.Duration

		API           APIConfig
		Notifications NotificationsConfig
		Session       SessionConfig
		DevAPI        DevAPIConfig
		Database      DatabaseConfig
		Email         EmailConfig
	}
)

// NewConfig reads the configuration from the environment (and the optional config/.env.<env> file).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Internship")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("pageSize", 10)
	v.SetDefault("searchDebounce", 500*time.Millisecond)
	v.SetDefault("apiBaseURL", "http://localhost:8000/api")
	v.SetDefault("apiTimeout", time.Duration(0))
	v.SetDefault("notificationsPollInterval", 30*time.Second)
	v.SetDefault("notificationsDigestTo", "")
	v.SetDefault("sessionFile", filepath.Join(ConfigDir(), "session.json"))
	v.SetDefault("devapiAddress", ":8000")
	v.SetDefault("secretKey", "tq9z-k0@c1j)intern$+ship=7x&w!e2#d")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("passwordResetLink", "http://localhost:3000/reset-password/%s/%s")
	v.SetDefault("uploadDir", "uploads")
	v.SetDefault("debugAddress", "localhost:4000")
	v.SetDefault("disableReqLogs", false)
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("databaseDriver", "sqlite")
	v.SetDefault("databaseDSN", "internship.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	v.SetDefault("sendgridKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		RollbarToken: v.GetString("rollbarToken"),
		PageSize:     v.GetInt("pageSize"),
		Debounce:     v.GetDuration("searchDebounce"),
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("apiBaseURL"), "/"),
			Timeout: v.GetDuration("apiTimeout"),
		},
		Notifications: NotificationsConfig{
			PollInterval: v.GetDuration("notificationsPollInterval"),
			DigestTo:     v.GetString("notificationsDigestTo"),
		},
		Session: SessionConfig{
			File: v.GetString("sessionFile"),
		},
		DevAPI: DevAPIConfig{
			Address:                   v.GetString("devapiAddress"),
			SecretKey:                 v.GetString("secretKey"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
			PasswordResetLink:         v.GetString("passwordResetLink"),
			UploadDir:                 v.GetString("uploadDir"),
			DebugAddress:              v.GetString("debugAddress"),
			DisableReqLogs:            v.GetBool("disableReqLogs"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("databaseDriver"),
			DSN:    v.GetString("databaseDSN"),
		},
		Email: EmailConfig{
			SendgridKey:      v.GetString("sendgridKey"),
			DefaultFromEmail: v.GetString("defaultFromEmail"),
		},
	}
}
