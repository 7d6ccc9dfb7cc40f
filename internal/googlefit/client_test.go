package googlefit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/googlefit"
)

func i64(v int64) *int64 { return &v }
func f64(v float64) *float64 { return &v }

func TestSumBucketSteps(t *testing.T) {
	bucket := googlefit.Bucket{
		Dataset: []googlefit.Dataset{
			{Point: []googlefit.Point{
				{Value: []googlefit.Value{{IntVal: i64(100)}}},
				{Value: []googlefit.Value{{IntVal: i64(50)}}},
			}},
			{Point: []googlefit.Point{
				{Value: []googlefit.Value{{FpVal: f64(25.0)}}},
				{},
			}},
		},
	}
	assert.Equal(t, 175.0, googlefit.SumBucketSteps(bucket))
}

func TestSumBucketSteps_PrefersIntVal(t *testing.T) {
	bucket := googlefit.Bucket{Dataset: []googlefit.Dataset{{Point: []googlefit.Point{
		{Value: []googlefit.Value{{IntVal: i64(10), FpVal: f64(99)}, {IntVal: i64(1000)}}},
		{Value: []googlefit.Value{{}}},
	}}}}
	assert.Equal(t, 10.0, googlefit.SumBucketSteps(bucket))
	assert.Equal(t, 0.0, googlefit.SumBucketSteps(googlefit.Bucket{}))
}

func TestBucketStartMillis(t *testing.T) {
	ms, ok := googlefit.BucketStartMillis(googlefit.Bucket{StartTimeMillis: "1717200000000"})
	assert.True(t, ok)
	assert.Equal(t, int64(1717200000000), ms)

	ms, ok = googlefit.BucketStartMillis(googlefit.Bucket{StartTimeNanos: "1717200000000000000"})
	assert.True(t, ok)
	assert.Equal(t, int64(1717200000000), ms)

	_, ok = googlefit.BucketStartMillis(googlefit.Bucket{})
	assert.False(t, ok)

	_, ok = googlefit.BucketStartMillis(googlefit.Bucket{StartTimeMillis: "0"})
	assert.False(t, ok)
}

func tokenServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchange(t *testing.T) {
	srv := tokenServer(t, http.StatusOK,
		`{"access_token":"access-1","refresh_token":"refresh-1","expires_in":3600,"token_type":"Bearer","scope":"scope-x"}`,
		func(r *http.Request) {
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "code-1", r.PostForm.Get("code"))
			assert.Equal(t, "https://app.example/cb", r.PostForm.Get("redirect_uri"))
			assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
			assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		})

	c := googlefit.New(googlefit.Config{ClientID: "client-id", ClientSecret: "client-secret", TokenURL: srv.URL})
	require.True(t, c.Configured())

	tok, err := c.Exchange(context.Background(), "code-1", "https://app.example/cb")
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
	assert.Equal(t, "scope-x", tok.Extra("scope"))
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
}

func TestExchange_RejectedHidesProviderBody(t *testing.T) {
	srv := tokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"secret detail"}`, nil)
	c := googlefit.New(googlefit.Config{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL})

	_, err := c.Exchange(context.Background(), "bad", "https://app.example/cb")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCredentialExchangeFailure))
	assert.NotContains(t, err.Error(), "secret detail")
}

func TestNotConfigured(t *testing.T) {
	assert.False(t, googlefit.New(googlefit.Config{ClientID: "id"}).Configured())
}

func TestAggregate(t *testing.T) {
	tokens := tokenServer(t, http.StatusOK, `{"access_token":"fresh","expires_in":3600,"token_type":"Bearer"}`,
		func(r *http.Request) {
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		})

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/dataset:aggregate", r.URL.Path)
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))

		var req googlefit.AggregateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, googlefit.StepCountDelta, req.AggregateBy[0].DataTypeName)
		assert.Equal(t, googlefit.DayMillis, req.BucketByTime.DurationMillis)
		assert.Equal(t, int64(1000), req.StartTimeMillis)
		assert.Equal(t, int64(2000), req.EndTimeMillis)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bucket":[{"startTimeMillis":"1717200000000","endTimeMillis":"1717286400000",
			"dataset":[{"point":[{"value":[{"intVal":1234}]}]}]}]}`))
	}))
	t.Cleanup(api.Close)

	c := googlefit.New(googlefit.Config{ClientID: "id", ClientSecret: "secret", TokenURL: tokens.URL, BaseURL: api.URL})
	ts := c.TokenSource(context.Background(), "refresh-1", "stale", nil)

	buckets, err := c.Aggregate(context.Background(), ts, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, 1234.0, googlefit.SumBucketSteps(buckets[0]))

	tok, changed, err := googlefit.Token(ts, "stale")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "fresh", tok.AccessToken)
}

func TestAggregate_ProviderError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
	}))
	t.Cleanup(api.Close)

	c := googlefit.New(googlefit.Config{ClientID: "id", ClientSecret: "secret", BaseURL: api.URL})
	expiry := time.Now().Add(time.Hour)
	ts := c.TokenSource(context.Background(), "refresh-1", "cached", &expiry)

	_, err := c.Aggregate(context.Background(), ts, 0, 1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderQueryFailure))
}

func TestAggregate_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"bucket":[]}`))
	}))
	t.Cleanup(api.Close)

	c := googlefit.New(googlefit.Config{ClientID: "id", ClientSecret: "secret", BaseURL: api.URL, RetryInterval: time.Millisecond})
	expiry := time.Now().Add(time.Hour)

	buckets, err := c.Aggregate(context.Background(), c.TokenSource(context.Background(), "r", "cached", &expiry), 0, 1)
	require.NoError(t, err)
	assert.Empty(t, buckets)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAggregate_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(api.Close)

	c := googlefit.New(googlefit.Config{ClientID: "id", ClientSecret: "secret", BaseURL: api.URL, RetryInterval: time.Millisecond})
	expiry := time.Now().Add(time.Hour)

	_, err := c.Aggregate(context.Background(), c.TokenSource(context.Background(), "r", "cached", &expiry), 0, 1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderQueryFailure))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAggregate_RefreshRejected(t *testing.T) {
	tokens := tokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`, nil)
	c := googlefit.New(googlefit.Config{ClientID: "id", ClientSecret: "secret", TokenURL: tokens.URL, BaseURL: "http://127.0.0.1:1"})

	_, err := c.Aggregate(context.Background(), c.TokenSource(context.Background(), "revoked", "", nil), 0, 1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCredentialExchangeFailure))
}
