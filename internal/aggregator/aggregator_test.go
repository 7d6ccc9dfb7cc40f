package aggregator_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"

	"github.com/vytor/stepple/internal/aggregator"
	"github.com/vytor/stepple/internal/docstore"
	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/googlefit"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/stepstore"
	"github.com/vytor/stepple/internal/testutil"
	"github.com/vytor/stepple/internal/testutil/mocks"
)

type AggregatorSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	docs  *docstore.Store
	store *stepstore.Store
	fit   *mocks.MockFitClient
	agg   *aggregator.Aggregator
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	s.docs = docstore.New(testutil.NewTestDB(s.T()), docstore.WithClock(testutil.FixedClock(s.now)))
	s.store = stepstore.New(s.docs)
	s.fit = new(mocks.MockFitClient)
	s.fit.On("Configured").Return(true).Maybe()
	s.agg = aggregator.New(s.store, s.fit, aggregator.Config{Concurrency: 2}).WithClock(testutil.FixedClock(s.now))
}

func (s *AggregatorSuite) link(uid, refresh, access string) {
	s.Require().NoError(s.store.MergeIntegration(s.ctx, uid, stepstore.IntegrationUpdate{
		Provider:     models.ProviderGoogleFit,
		RefreshToken: refresh,
		AccessToken:  access,
	}))
}

func (s *AggregatorSuite) tokenFor(refresh, access string) {
	s.fit.On("TokenSource", mock.Anything, refresh, mock.Anything, mock.Anything).
		Return(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: access}))
}

func dayBucket(day time.Time, counts ...int64) googlefit.Bucket {
	points := make([]googlefit.Point, 0, len(counts))
	for _, c := range counts {
		c := c
		points = append(points, googlefit.Point{Value: []googlefit.Value{{IntVal: &c}}})
	}
	return googlefit.Bucket{
		StartTimeMillis: json.Number(strconv.FormatInt(day.UnixMilli(), 10)),
		Dataset:         []googlefit.Dataset{{Point: points}},
	}
}

func (s *AggregatorSuite) TestIntegrationsAreIsolated() {
	s.link("u1", "r1", "a1")
	s.link("u2", "r2", "a2")
	s.link("u3", "r3", "a3")
	s.link("u4", "", "a4")
	s.Require().NoError(s.docs.Set(s.ctx, "integrations/googleFit", docstore.Fields{
		"provider": models.ProviderGoogleFit, "refreshToken": "r5",
	}, true))

	s.tokenFor("r1", "a1-fresh")
	s.tokenFor("r2", "a2")
	s.tokenFor("r3", "a3")

	jun1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	jun2 := jun1.AddDate(0, 0, 1)
	start, end := s.now.Add(-72*time.Hour).UnixMilli(), s.now.UnixMilli()

	s.fit.On("Aggregate", mock.Anything, mocks.AccessToken("a1-fresh"), start, end).
		Return([]googlefit.Bucket{dayBucket(jun1, 100, 50), dayBucket(jun2, 7), {}}, nil)
	s.fit.On("Aggregate", mock.Anything, mocks.AccessToken("a2"), start, end).
		Return(nil, apperrors.NewProviderQueryFailure(errors.New("status 500")))
	s.fit.On("Aggregate", mock.Anything, mocks.AccessToken("a3"), start, end).
		Run(func(mock.Arguments) { panic("decoder exploded") })

	report, err := s.agg.SyncAllIntegrations(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(5, report.Total)
	s.Assert().Equal(1, report.Synced)
	s.Assert().Equal(2, report.Failed)
	s.Assert().Equal(2, report.Skipped)
	s.Assert().Equal(2, report.BucketsWritten)

	rec, err := s.store.GetStepRecord(s.ctx, "u1", "2025-06-01")
	s.Require().NoError(err)
	s.Require().NotNil(rec)
	s.Assert().Equal(int64(150), rec.Count)
	s.Assert().Equal(models.ProviderGoogleFit, rec.Provider)
	s.Assert().NotNil(rec.LastSyncedAt)

	profile, err := s.store.GetProfile(s.ctx, "u1")
	s.Require().NoError(err)
	s.Assert().Equal("2025-06-02", profile.LastUpdatedDate)
	s.Assert().Equal(int64(7), profile.LastStepCount)

	list, err := s.store.ListIntegrations(s.ctx, models.ProviderGoogleFit)
	s.Require().NoError(err)
	for _, in := range list {
		if in.UserID == "u1" {
			s.Assert().Equal("a1-fresh", in.AccessToken, "refreshed token is written back")
			s.Assert().Equal("r1", in.RefreshToken)
		}
		if in.UserID == "u2" {
			s.Assert().Equal("a2", in.AccessToken)
		}
	}

	for _, uid := range []string{"u2", "u3"} {
		rec, err := s.store.GetStepRecord(s.ctx, uid, "2025-06-01")
		s.Require().NoError(err)
		s.Assert().Nil(rec, uid)
	}
}

func (s *AggregatorSuite) TestEmptyBucketsWriteNothing() {
	s.link("u1", "r1", "a1")
	s.tokenFor("r1", "a1")
	s.fit.On("Aggregate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]googlefit.Bucket{}, nil)

	report, err := s.agg.SyncAllIntegrations(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(1, report.Empty)

	profile, err := s.store.GetProfile(s.ctx, "u1")
	s.Require().NoError(err)
	s.Assert().Nil(profile)
}

func (s *AggregatorSuite) TestNoIntegrations() {
	report, err := s.agg.SyncAllIntegrations(s.ctx)
	s.Require().NoError(err)
	s.Assert().Zero(report.Total)
	s.fit.AssertNotCalled(s.T(), "Aggregate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *AggregatorSuite) TestRequiresCredentials() {
	fit := new(mocks.MockFitClient)
	fit.On("Configured").Return(false)

	_, err := aggregator.New(s.store, fit, aggregator.Config{}).SyncAllIntegrations(s.ctx)
	s.Assert().True(apperrors.IsCode(err, apperrors.ErrCodeFailedPrecondition))
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func TestDays(t *testing.T) {
	fp := 12.6
	days := aggregator.Days([]googlefit.Bucket{
		{StartTimeNanos: "1748736000000000000", Dataset: []googlefit.Dataset{{Point: []googlefit.Point{{Value: []googlefit.Value{{FpVal: &fp}}}}}}},
		{StartTimeMillis: "not-a-number"},
	})
	assert.Equal(t, []stepstore.DayCount{{DateID: "2025-06-01", Count: 13}}, days)
}
