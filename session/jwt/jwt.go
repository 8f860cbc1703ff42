// Package jwt implements a session provider from HMAC signed bearer tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openfun/richie-sub000/enrollment"
	"github.com/openfun/richie-sub000/logkeys"

	"github.com/golang-jwt/jwt/v5"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

var (
	ErrMissingKey   = errors.New("missing signing key")
	ErrInvalidToken = errors.New("invalid session token")
)

type claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Provider resolves users from JWTs carried on the request context.
// The token itself is kept as the user access token so that backends
// sharing the signing key (e.g. Joanie) accept it as is.
type Provider struct {
	key      []byte
	issuer   string
	audience string
	loginURL string
	now      func() time.Time
	logger   log.Logger
}

// Option configures the provider.
type Option func(*Provider)

// WithIssuer requires tokens to carry the iss claim.
func WithIssuer(iss string) Option {
	return func(p *Provider) {
		p.issuer = iss
	}
}

// WithAudience requires tokens to carry the aud claim.
func WithAudience(aud string) Option {
	return func(p *Provider) {
		p.audience = aud
	}
}

// WithLoginURL sets the login page URL. A "next" query parameter is added by LoginURL.
func WithLoginURL(u string) Option {
	return func(p *Provider) {
		p.loginURL = u
	}
}

// WithTimeFunc overrides the clock used to validate expiry.
func WithTimeFunc(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// WithLogger sets the logger rejected tokens are reported to.
func WithLogger(logger log.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New creates a new provider verifying HS256 tokens signed with key.
func New(key []byte, opts ...Option) (*Provider, error) {
	if len(key) < 1 {
		return nil, ErrMissingKey
	}
	p := &Provider{key: key, now: time.Now, logger: log.NopLogger}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Parse validates token and returns its user.
func (p *Provider) Parse(token string) (*enrollment.User, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(p.audience))
	}
	c := new(claims)
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return p.key, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	username := c.Username
	if username == "" {
		username = c.Subject
	}
	if username == "" {
		return nil, fmt.Errorf("%w: no username", ErrInvalidToken)
	}
	return &enrollment.User{
		Username:    username,
		FullName:    c.FullName,
		Email:       c.Email,
		AccessToken: token,
	}, nil
}

// Sign creates a token for user valid for ttl.
// Mostly useful for tests and tooling.
func (p *Provider) Sign(user *enrollment.User, ttl time.Duration) (string, error) {
	if user == nil {
		return "", enrollment.ErrMissingUser
	}
	now := p.now()
	c := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
	}
	if p.audience != "" {
		c.Audience = jwt.ClaimStrings{p.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.key)
}

// CurrentUser returns the user of the token on ctx or nil if there is none.
// An invalid or expired token is logged and treated as no session.
func (p *Provider) CurrentUser(ctx context.Context) (*enrollment.User, error) {
	token := TokenFromContext(ctx)
	if token == "" {
		return nil, nil
	}
	user, err := p.Parse(token)
	if errors.Is(err, ErrInvalidToken) {
		ctxlog.Logger(ctx, p.logger).Info(logkeys.Message, "ignoring session token", logkeys.Error, err)
		return nil, nil
	}
	return user, err
}

// LoginURL returns the configured login URL with next as the return location.
func (p *Provider) LoginURL(next string) string {
	if p.loginURL == "" {
		return ""
	}
	u, err := url.Parse(p.loginURL)
	if err != nil {
		return p.loginURL
	}
	if next != "" {
		q := u.Query()
		q.Set("next", next)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type ctxKeyToken struct{}

// NewContext returns a context carrying token.
func NewContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeyToken{}, token)
}

// TokenFromContext returns the token on ctx or an empty string.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(ctxKeyToken{}).(string)
	return token
}

// SessionHeader carries the session token when the Authorization
// header is taken by API authentication.
const SessionHeader = "X-Session-Token"

// BearerToken extracts the session token of r: the SessionHeader if
// present and otherwise the bearer token of the Authorization header.
func BearerToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(SessionHeader)); token != "" {
		return token
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Middleware puts the request bearer token, if any, on the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := BearerToken(r); token != "" {
			r = r.WithContext(NewContext(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}
