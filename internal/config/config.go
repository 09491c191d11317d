package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application settings, populated from the environment.
type Config struct {
	Addr     string `env:"APP_ADDR" env-default:"127.0.0.1:8000"`
	DBDriver string `env:"DB_DRIVER" env-default:"sqlite3"`
	DBConn   string `env:"DB_CONN" env-default:"./notes.db"`

	// SecretKey signs session-independent credentials (password reset tokens).
	SecretKey string `env:"SECRET_KEY" env-default:"notes-dev-secret-change-in-prod"`

	BaseURL     string `env:"BASE_URL" env-default:"http://127.0.0.1:8000"`
	TemplateDir string `env:"TEMPLATE_DIR" env-default:"./web/templates"`
	StaticDir   string `env:"STATIC_DIR" env-default:"./static"`

	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" env-default:"30m"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" env-default:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" env-default:"notes@localhost"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
