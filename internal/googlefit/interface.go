package googlefit

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// ClientInterface defines the Google Fit operations used by the link
// service and the aggregator.
type ClientInterface interface {
	Configured() bool
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	TokenSource(ctx context.Context, refreshToken, accessToken string, expiry *time.Time) oauth2.TokenSource
	Aggregate(ctx context.Context, ts oauth2.TokenSource, startMillis, endMillis int64) ([]Bucket, error)
}

// Ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)
