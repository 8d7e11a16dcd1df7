package credentials

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenTimeout bounds each request to the token endpoint made by a
// store from NewClientCredentialsStore.
const DefaultTokenTimeout = 10 * time.Second

// OAuth2Store hands out the access token of an oauth2.TokenSource. The
// source is wrapped in oauth2.ReuseTokenSource so a valid token is reused
// across reconnects and refreshed only when expired.
type OAuth2Store struct {
	source oauth2.TokenSource
}

// NewOAuth2Store wraps src.
func NewOAuth2Store(src oauth2.TokenSource) *OAuth2Store {
	return &OAuth2Store{source: oauth2.ReuseTokenSource(nil, src)}
}

// NewClientCredentialsStore fetches tokens with the client credentials
// grant against tokenURL. Requests use the *http.Client stored in ctx under
// oauth2.HTTPClient, or one with DefaultTokenTimeout.
func NewClientCredentialsStore(ctx context.Context, clientID, clientSecret, tokenURL string, scopes ...string) *OAuth2Store {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return NewOAuth2Store(cfg.TokenSource(tokenContext(ctx)))
}

func tokenContext(ctx context.Context) context.Context {
	if _, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: DefaultTokenTimeout})
}

type tokenResult struct {
	token *oauth2.Token
	err   error
}

// Token implements realtime.CredentialStore. It returns when ctx is done
// even if the token source is still fetching.
func (s *OAuth2Store) Token(ctx context.Context) (string, error) {
	done := make(chan tokenResult, 1)
	go func() {
		tok, err := s.source.Token()
		done <- tokenResult{token: tok, err: err}
	}()

	var res tokenResult
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("oauth2 token: %w", ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return "", fmt.Errorf("oauth2 token: %w", res.err)
	}
	if res.token.AccessToken == "" {
		return "", ErrNoToken
	}
	return res.token.AccessToken, nil
}
