package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf holds the app configuration. It is loaded once on start up.
var Conf *Config

type (
	ServerConfig struct {
		Host                          string
		Port                          string
		JWTExpirationDelta            time.Duration
		JWTRefreshExpirationDelta     time.Duration
		AccountActivationTimeoutDelta time.Duration
		PasswordResetTimeoutDelta     time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	MidtransConfig struct {
		ServerKey  string
		Production bool
	}

	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		AppName          string
		SecretKey        []byte
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		// CertifyEmptyThemes controls whether a theme without any lesson can
		// yield a certification. Disabled by default.
		CertifyEmptyThemes bool

		Server   ServerConfig
		Database DatabaseConfig
		Midtrans MidtransConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func init() {
	Conf = loadConfig()
}

func loadConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Knowledge Learning")
	conf.SetDefault("secretKey", "w*1df6mn8lgxf9-!iqxpe3(o0d95*fd!7-p=6mt_k8_8r#!+b%")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("certifyEmptyThemes", false)

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("accountActivationTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "knowledge")
	conf.SetDefault("dbUser", "knowledge")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("midtransServerKey", "")
	conf.SetDefault("midtransProduction", false)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        []byte(conf.GetString("secretKey")),
		WorkDir:          wd,
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),

		CertifyEmptyThemes: conf.GetBool("certifyEmptyThemes"),

		Server: ServerConfig{
			Host:                          conf.GetString("serverHost"),
			Port:                          conf.GetString("serverPort"),
			JWTExpirationDelta:            conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta:     conf.GetDuration("jwtRefreshExpirationDelta"),
			AccountActivationTimeoutDelta: conf.GetDuration("accountActivationTimeoutDelta"),
			PasswordResetTimeoutDelta:     conf.GetDuration("passwordResetTimeoutDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Midtrans: MidtransConfig{
			ServerKey:  conf.GetString("midtransServerKey"),
			Production: conf.GetBool("midtransProduction"),
		},
	}
}
