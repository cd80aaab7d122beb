package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// DefaultRevokeURL is Google's OAuth2 token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// Grant is a guest's authorized access to their calendar account. It is held
// in session state only and destroyed on logout.
type Grant struct {
	ID    string
	Email string
	Token *oauth2.Token
}

// Config carries the OAuth client settings for guest authentication.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Exchanger converts one-time authorization codes into Grants and revokes
// them again on logout.
type Exchanger struct {
	conf       *oauth2.Config
	apiOpts    []option.ClientOption
	revokeURL  string
	httpClient *http.Client
}

// Option customizes an Exchanger, mainly so tests can point it at a fake
// provider.
type Option func(*Exchanger)

// WithEndpoint overrides the OAuth2 auth/token endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(e *Exchanger) {
		e.conf.Endpoint = endpoint
	}
}

// WithRevokeURL overrides the token revocation endpoint.
func WithRevokeURL(u string) Option {
	return func(e *Exchanger) {
		e.revokeURL = u
	}
}

// WithAPIOptions appends client options used when building the userinfo
// service, e.g. option.WithEndpoint for tests.
func WithAPIOptions(opts ...option.ClientOption) Option {
	return func(e *Exchanger) {
		e.apiOpts = append(e.apiOpts, opts...)
	}
}

// WithHTTPClient overrides the HTTP client used for revocation calls.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exchanger) {
		e.httpClient = c
	}
}

// NewExchanger creates an Exchanger for the given OAuth client. The scopes
// cover read-only calendar access plus the guest's email address.
func NewExchanger(cfg Config, opts ...Option) *Exchanger {
	e := &Exchanger{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes: []string{
				calendar.CalendarReadonlyScope,
				oauth2api.UserinfoEmailScope,
			},
		},
		revokeURL:  DefaultRevokeURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AuthCodeURL returns the hosted authentication URL the guest's browser is
// sent to. state correlates the provider callback with the session that
// started the flow.
func (e *Exchanger) AuthCodeURL(state string) string {
	return e.conf.AuthCodeURL(state)
}

// Exchange trades the authorization code for a Grant. The grant identity and
// account email come from the provider's userinfo lookup with the freshly
// exchanged token.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*Grant, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is empty")
	}

	token, err := e.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(e.conf.TokenSource(ctx, token)),
	}, e.apiOpts...)

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to look up grant identity: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("grant lookup returned no email address")
	}

	grantID := info.Id
	if grantID == "" {
		grantID = info.Email
	}

	return &Grant{
		ID:    grantID,
		Email: info.Email,
		Token: token,
	}, nil
}

// Revoke destroys the grant at the provider. Callers treat failures as
// best-effort; local session state is cleared regardless.
func (e *Exchanger) Revoke(ctx context.Context, grant *Grant) error {
	if grant == nil || grant.Token == nil {
		return nil
	}

	token := grant.Token.RefreshToken
	if token == "" {
		token = grant.Token.AccessToken
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revocation endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
