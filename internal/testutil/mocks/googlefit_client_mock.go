package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/stepple/internal/googlefit"
	"golang.org/x/oauth2"
)

// MockFitClient is a mock implementation of googlefit.ClientInterface
type MockFitClient struct {
	mock.Mock
}

var _ googlefit.ClientInterface = (*MockFitClient)(nil)

func (m *MockFitClient) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockFitClient) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	args := m.Called(ctx, code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockFitClient) TokenSource(ctx context.Context, refreshToken, accessToken string, expiry *time.Time) oauth2.TokenSource {
	args := m.Called(ctx, refreshToken, accessToken, expiry)
	return args.Get(0).(oauth2.TokenSource)
}

func (m *MockFitClient) Aggregate(ctx context.Context, ts oauth2.TokenSource, startMillis, endMillis int64) ([]googlefit.Bucket, error) {
	args := m.Called(ctx, ts, startMillis, endMillis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]googlefit.Bucket), args.Error(1)
}

// AccessToken matches a token source whose current token is accessToken.
func AccessToken(accessToken string) interface{} {
	return mock.MatchedBy(func(ts oauth2.TokenSource) bool {
		tok, err := ts.Token()
		return err == nil && tok.AccessToken == accessToken
	})
}
