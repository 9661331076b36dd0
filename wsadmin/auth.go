package wsadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
)

// Scopes requested by every credential provider.
var Scopes = []string{
	admin.AdminDirectoryUserScope,
	admin.AdminDirectoryOrgunitScope,
}

var ErrNoCredentials = errors.New("no credentials configured: set GWS_SERVICE_ACCOUNT_FILE or OAUTH_CLIENT_SECRETS_FILE")

// CredentialProvider hands out an authorized http client. Close releases
// whatever the provider holds, persisting refreshed tokens.
type CredentialProvider interface {
	Client(ctx context.Context) (*http.Client, error)
	Close() error
}

// NewCredentialProvider picks the service account when one is configured and
// falls back to the installed-app OAuth flow. out receives the consent URL.
func NewCredentialProvider(cfg *Config, logger *slog.Logger, out io.Writer) (CredentialProvider, error) {
	switch {
	case cfg.ServiceAccountFile != "":
		if cfg.DelegatedUserEmail == "" {
			return nil, fmt.Errorf("GWS_ADMIN_EMAIL is required with a service account")
		}
		return &ServiceAccountProvider{
			CredentialsFile: cfg.ServiceAccountFile,
			Subject:         cfg.DelegatedUserEmail,
		}, nil
	case cfg.OAuthClientSecretsFile != "":
		return &TokenFileProvider{
			ClientSecretsFile: cfg.OAuthClientSecretsFile,
			TokenFile:         cfg.TokenFile,
			Logger:            logger,
			Out:               out,
		}, nil
	default:
		return nil, ErrNoCredentials
	}
}

// ServiceAccountProvider authenticates with delegated service account
// credentials.
// https://developers.google.com/identity/protocols/oauth2/service-account#delegatingauthority
type ServiceAccountProvider struct {
	CredentialsFile string
	// Subject must be an admin of the Google Workspace.
	Subject string
}

func (p *ServiceAccountProvider) Client(ctx context.Context) (*http.Client, error) {
	credJSON, err := os.ReadFile(p.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from %q: %w", p.CredentialsFile, err)
	}

	cjwt, err := google.JWTConfigFromJSON(credJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config from JSON (bytes=%d): %w", len(credJSON), err)
	}
	cjwt.Subject = p.Subject
	return cjwt.Client(ctx), nil
}

func (*ServiceAccountProvider) Close() error { return nil }

// TokenFileProvider runs the installed-app OAuth flow once and caches the
// token in TokenFile. Refreshed tokens are written back to the same file.
type TokenFileProvider struct {
	ClientSecretsFile string
	TokenFile         string
	Logger            *slog.Logger
	Out               io.Writer

	// endpoint overrides the client secret's endpoint, used by tests.
	endpoint *oauth2.Endpoint
	source   *cachingTokenSource
}

func (p *TokenFileProvider) Client(ctx context.Context) (*http.Client, error) {
	secret, err := os.ReadFile(p.ClientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets from %q: %w", p.ClientSecretsFile, err)
	}
	conf, err := google.ConfigFromJSON(secret, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	if p.endpoint != nil {
		conf.Endpoint = *p.endpoint
	}

	tok, err := loadToken(p.TokenFile)
	if err != nil {
		p.logger().Info("no cached token, starting authorization", slog.String("token_file", p.TokenFile), slog.Any("error", err))
		tok, err = p.authorize(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := saveToken(p.TokenFile, tok); err != nil {
			return nil, err
		}
	}

	p.source = &cachingTokenSource{
		base:   conf.TokenSource(ctx, tok),
		path:   p.TokenFile,
		last:   tok,
		logger: p.logger(),
	}
	return oauth2.NewClient(ctx, p.source), nil
}

// Close persists the most recent token.
func (p *TokenFileProvider) Close() error {
	if p.source == nil {
		return nil
	}
	return p.source.save()
}

func (p *TokenFileProvider) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}

// authorize sends the operator to the consent page and waits for the
// redirect on a loopback listener.
func (p *TokenFileProvider) authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for oauth redirect: %w", err)
	}
	conf.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "invalid oauth state", http.StatusBadRequest)
			sendOnce(errs, fmt.Errorf("invalid oauth state"))
		case q.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusForbidden)
			sendOnce(errs, fmt.Errorf("authorization denied: %s", q.Get("error")))
		default:
			fmt.Fprintln(w, "Authorization complete. You may close this window.")
			sendOnce(codes, q.Get("code"))
		}
	})}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer srv.Close()

	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "Open the following link in your browser to authorize access:\n%s\n",
		conf.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codes:
		tok, err := conf.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("code exchange failed: %w", err)
		}
		return tok, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func sendOnce[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// cachingTokenSource writes every new access token to path.
type cachingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := s.last == nil || s.last.AccessToken != tok.AccessToken
	s.last = tok
	s.mu.Unlock()

	if changed {
		if err := saveToken(s.path, tok); err != nil {
			s.logger.Warn("failed to cache refreshed token", slog.String("token_file", s.path), slog.Any("error", err))
		}
	}
	return tok, nil
}

func (s *cachingTokenSource) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	return saveToken(s.path, s.last)
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token %q: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("failed to cache oauth token: %w", err)
	}
	return nil
}
