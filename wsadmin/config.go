package wsadmin

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is populated from the environment, optionally seeded by a .env file.
type Config struct {
	// OAuthClientSecretsFile is the "installed application" client secret
	// JSON downloaded from the Google Cloud console.
	OAuthClientSecretsFile string `env:"OAUTH_CLIENT_SECRETS_FILE"`
	// TokenFile caches the OAuth token between runs.
	TokenFile string `env:"GWS_TOKEN_FILE" envDefault:"token.json"`

	// ServiceAccountFile takes precedence over the OAuth client when set.
	// The account needs domain-wide delegation.
	// https://developers.google.com/identity/protocols/oauth2/service-account#delegatingauthority
	ServiceAccountFile string `env:"GWS_SERVICE_ACCOUNT_FILE"`
	// DelegatedUserEmail must be an admin of the Google Workspace. Only used
	// with ServiceAccountFile.
	DelegatedUserEmail string `env:"GWS_ADMIN_EMAIL"`

	// CustomerID scopes every directory query.
	// https://support.google.com/a/answer/10070793?hl=en
	CustomerID string `env:"GWS_CUSTOMER_ID" envDefault:"my_customer"`

	// EmailDomain and StudentTag build new primary emails:
	// first.last@domain for staff, first.last.tag@domain for students.
	EmailDomain string `env:"GWS_EMAIL_DOMAIN" envDefault:"223cos.net"`
	StudentTag  string `env:"GWS_STUDENT_TAG" envDefault:"stu"`

	// SkipExisting makes bulk creation skip rows whose email already exists.
	SkipExisting bool `env:"GWS_BULK_SKIP_EXISTING" envDefault:"true"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

// LoadConfig loads envFile (if it exists) into the process environment and
// parses the Config. A missing envFile is not an error.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %q: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Emails returns the address scheme for new users.
func (c *Config) Emails() EmailDomain {
	return EmailDomain{Domain: c.EmailDomain, StudentTag: c.StudentTag}
}

// NewLogger returns a text logger writing to w. Unknown levels fall back to
// warn.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
