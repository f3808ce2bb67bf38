package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string        `mapstructure:"PORT"`
	DatabaseDriver                string        `mapstructure:"DATABASE_DRIVER"`
	DatabasePath                  string        `mapstructure:"DATABASE_PATH"`
	DatabaseDSN                   string        `mapstructure:"DATABASE_DSN"`
	DiscordClientID               string        `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string        `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string        `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string        `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string        `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	JWTSecret                     string        `mapstructure:"JWT_SECRET"`
	FrontendURL                   string        `mapstructure:"FRONTEND_URL"`
	EnableCORS                    bool          `mapstructure:"ENABLE_CORS"`
	BackendURL                    string        `mapstructure:"BACKEND_URL"`
	BackendTimeout                time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	PaymentGateway                string        `mapstructure:"PAYMENT_GATEWAY"`
	PaymentSuccessRate            float64       `mapstructure:"PAYMENT_SUCCESS_RATE"`
	PaymentDelay                  time.Duration `mapstructure:"PAYMENT_DELAY"`
	PaymentDelayJitter            time.Duration `mapstructure:"PAYMENT_DELAY_JITTER"`
	BookingReferencePrefix        string        `mapstructure:"BOOKING_REFERENCE_PREFIX"`
	MaxTravelers                  int           `mapstructure:"MAX_TRAVELERS"`
	SessionIdleTimeout            time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`
	DraftRetention                time.Duration `mapstructure:"DRAFT_RETENTION"`
	LoginPath                     string        `mapstructure:"LOGIN_PATH"`
	VerifyEmailPath               string        `mapstructure:"VERIFY_EMAIL_PATH"`
	CatalogPath                   string        `mapstructure:"CATALOG_PATH"`
}

const (
	GatewaySimulated = "simulated"
	GatewayBackend   = "backend"

	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

func LoadConfig() *Config {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_DRIVER", DriverSQLite)
	viper.SetDefault("DATABASE_PATH", "igolanka.db")
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	viper.SetDefault("FRONTEND_URL", "http://127.0.0.1:5173")
	viper.SetDefault("BACKEND_TIMEOUT", 20*time.Second)
	viper.SetDefault("PAYMENT_GATEWAY", GatewaySimulated)
	viper.SetDefault("PAYMENT_SUCCESS_RATE", 0.8)
	viper.SetDefault("PAYMENT_DELAY", 2*time.Second)
	viper.SetDefault("PAYMENT_DELAY_JITTER", 500*time.Millisecond)
	viper.SetDefault("BOOKING_REFERENCE_PREFIX", "IGL")
	viper.SetDefault("MAX_TRAVELERS", 20)
	viper.SetDefault("SESSION_IDLE_TIMEOUT", 2*time.Hour)
	viper.SetDefault("DRAFT_RETENTION", 72*time.Hour)
	viper.SetDefault("LOGIN_PATH", "/auth/discord/login")
	viper.SetDefault("VERIFY_EMAIL_PATH", "/verify-email")
	viper.SetDefault("CATALOG_PATH", "/packages")

	viper.BindEnv("DATABASE_DSN")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_GUILD_ID")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("FRONTEND_URL")
	viper.BindEnv("ENABLE_CORS")
	viper.BindEnv("BACKEND_URL")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	if config.PaymentGateway != GatewaySimulated && config.PaymentGateway != GatewayBackend {
		log.Printf("Unknown PAYMENT_GATEWAY %q, using %s", config.PaymentGateway, GatewaySimulated)
		config.PaymentGateway = GatewaySimulated
	}
	if config.PaymentGateway == GatewayBackend && config.BackendURL == "" {
		log.Fatalf("PAYMENT_GATEWAY=%s requires BACKEND_URL", GatewayBackend)
	}

	return &config
}
