// Package googlefit talks to the Google OAuth token endpoint and the
// Fitness REST API's dataset:aggregate method.
package googlefit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"

	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
)

const (
	// Scope is the read scope requested when linking.
	Scope = "https://www.googleapis.com/auth/fitness.activity.read"

	StepCountDelta = "com.google.step_count.delta"
	DayMillis      = int64(86_400_000)

	DefaultTokenURL   = "https://oauth2.googleapis.com/token"
	DefaultBaseURL    = "https://www.googleapis.com/fitness/v1"
	DefaultMaxRetries = 2
)

// Config holds the OAuth client and endpoint settings.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	// HTTPClient is used for both token and API calls.
	HTTPClient *http.Client
	// MaxRetries bounds retries of aggregate calls that fail with a
	// transport error, 429 or 5xx. Negative disables retries.
	MaxRetries int
	// RetryInterval is the first backoff interval.
	RetryInterval time.Duration
}

type Client struct {
	oauth      oauth2.Config
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryEvery time.Duration
	log        *logger.Logger
}

func New(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	return &Client{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{Scope},
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		maxRetries: cfg.MaxRetries,
		retryEvery: cfg.RetryInterval,
		log:        logger.Default().WithPrefix("googlefit"),
	}
}

// Configured reports whether OAuth client credentials are present.
func (c *Client) Configured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Exchange trades an authorization code for tokens. A rejected exchange
// logs the provider body and returns a CredentialExchangeFailure that does
// not carry it.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	log := logger.FromContext(ctx).WithPrefix("googlefit")

	conf := c.oauth
	conf.RedirectURL = redirectURI

	start := time.Now()
	tok, err := conf.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if apperrors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			log.Error("code exchange rejected: status=%d, body=%s", status, string(re.Body))
			return nil, apperrors.NewCredentialExchangeFailure(fmt.Errorf("token endpoint status %d", status))
		}
		log.Error("code exchange failed: %v", err)
		return nil, apperrors.NewCredentialExchangeFailure(err)
	}
	log.Debug("code exchanged in %v, refresh token present=%t", time.Since(start), tok.RefreshToken != "")
	return tok, nil
}

// TokenSource returns a refreshing token source seeded with the stored
// credentials. A cached access token is only trusted when its expiry is
// known.
func (c *Client) TokenSource(ctx context.Context, refreshToken, accessToken string, expiry *time.Time) oauth2.TokenSource {
	seed := &oauth2.Token{RefreshToken: refreshToken}
	if accessToken != "" && expiry != nil {
		seed.AccessToken = accessToken
		seed.Expiry = *expiry
		seed.TokenType = "Bearer"
	}
	return c.oauth.TokenSource(c.withHTTPClient(ctx), seed)
}

// Aggregate fetches day buckets of step deltas for [startMillis, endMillis].
func (c *Client) Aggregate(ctx context.Context, ts oauth2.TokenSource, startMillis, endMillis int64) ([]Bucket, error) {
	log := logger.FromContext(ctx).WithPrefix("googlefit")

	tok, err := ts.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if apperrors.As(err, &re) {
			log.Error("token refresh rejected: body=%s", string(re.Body))
			return nil, apperrors.NewCredentialExchangeFailure(fmt.Errorf("token refresh rejected"))
		}
		log.Error("token refresh failed: %v", err)
		return nil, apperrors.NewCredentialExchangeFailure(err)
	}

	body, err := json.Marshal(AggregateRequest{
		AggregateBy:     []AggregateBy{{DataTypeName: StepCountDelta}},
		BucketByTime:    BucketByTime{DurationMillis: DayMillis},
		StartTimeMillis: startMillis,
		EndTimeMillis:   endMillis,
	})
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/users/me/dataset:aggregate"
	log.Debug("requesting aggregate from: %s", url)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryEvery
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)

	var out AggregateResponse
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		return c.postAggregate(ctx, url, tok, body, &out)
	}, policy)
	if err != nil {
		log.Error("aggregate failed after %d attempt(s): %v", attempt, err)
		return nil, apperrors.NewProviderQueryFailure(err)
	}

	log.Debug("fetched %d buckets", len(out.Bucket))
	return out.Bucket, nil
}

// postAggregate makes one aggregate call. Errors that a retry cannot fix
// are wrapped with backoff.Permanent.
func (c *Client) postAggregate(ctx context.Context, url string, tok *oauth2.Token, body []byte, out *AggregateResponse) error {
	log := logger.FromContext(ctx).WithPrefix("googlefit")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("aggregate request failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	log.Debug("aggregate response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Warn("aggregate request failed: status=%d, body=%s", resp.StatusCode, string(raw))
		statusErr := fmt.Errorf("aggregate status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode aggregate response: %w", err))
	}
	return nil
}

// Token returns the current token from ts and whether it differs from the
// stored access token.
func Token(ts oauth2.TokenSource, storedAccessToken string) (*oauth2.Token, bool, error) {
	tok, err := ts.Token()
	if err != nil {
		return nil, false, err
	}
	return tok, tok.AccessToken != storedAccessToken, nil
}
