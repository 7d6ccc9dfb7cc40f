package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"

	"github.com/vytor/stepple/internal/api"
	"github.com/vytor/stepple/internal/auth"
	"github.com/vytor/stepple/internal/docstore"
	"github.com/vytor/stepple/internal/services"
	"github.com/vytor/stepple/internal/stepstore"
	"github.com/vytor/stepple/internal/testutil"
	"github.com/vytor/stepple/internal/testutil/mocks"
	"github.com/vytor/stepple/internal/worker"
)

type fakeQueue struct {
	err     error
	reasons []string
}

func (q *fakeQueue) EnqueueSync(reason string) error {
	q.reasons = append(q.reasons, reason)
	return q.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type envelope struct {
	Result map[string]any `json:"result"`
	Error  *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

type APISuite struct {
	suite.Suite
	ctx    context.Context
	store  *stepstore.Store
	fit    *mocks.MockFitClient
	queue  *fakeQueue
	server *api.Server
	token  string
}

func (s *APISuite) SetupTest() {
	s.ctx = context.Background()
	s.store = stepstore.New(docstore.New(testutil.NewTestDB(s.T())))
	s.fit = new(mocks.MockFitClient)
	s.queue = &fakeQueue{}

	cfg := auth.Config{Secret: "test-secret", Issuer: "stepple"}
	tok, err := auth.Sign(cfg, "u1", time.Hour)
	s.Require().NoError(err)
	s.token = tok

	s.server = &api.Server{
		DB:           fakePinger{},
		LinkService:  services.NewLinkService(s.fit, s.store),
		StepsService: services.NewStepsService(s.store),
		JobQueue:     s.queue,
		Auth:         cfg,
		AdminToken:   "admin-secret",
	}
}

func (s *APISuite) admin(header, value string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodPost, "/admin/sync", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	s.server.Routes().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *APISuite) do(method, path, body string, authed bool) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.server.Routes().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *APISuite) TestLinkProvider_RequiresAuth() {
	rec, env := s.do(http.MethodPost, "/rpc/linkProvider", `{"data":{"authCode":"c","redirectUri":"r"}}`, false)
	s.Assert().Equal(http.StatusUnauthorized, rec.Code)
	s.Require().NotNil(env.Error)
	s.Assert().Equal("UNAUTHENTICATED", env.Error.Status)
}

func (s *APISuite) TestLinkProvider_InvalidToken() {
	s.token = "garbage"
	rec, env := s.do(http.MethodPost, "/rpc/linkProvider", `{"data":{}}`, true)
	s.Assert().Equal(http.StatusUnauthorized, rec.Code)
	s.Assert().Equal("Invalid bearer token.", env.Error.Message)
}

func (s *APISuite) TestLinkProvider_Success() {
	s.fit.On("Configured").Return(true)
	s.fit.On("Exchange", mock.Anything, "code-1", "https://app/cb").
		Return(&oauth2.Token{AccessToken: "a", RefreshToken: "r"}, nil)

	rec, env := s.do(http.MethodPost, "/rpc/linkProvider", `{"data":{"authCode":"code-1","redirectUri":"https://app/cb"}}`, true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Assert().Equal(map[string]any{"success": true, "hasRefreshToken": true}, env.Result)
}

func (s *APISuite) TestLinkProvider_BadArguments() {
	rec, env := s.do(http.MethodPost, "/rpc/linkProvider", `{"data":{"authCode":""}}`, true)
	s.Assert().Equal(http.StatusBadRequest, rec.Code)
	s.Assert().Equal("INVALID_ARGUMENT", env.Error.Status)

	rec, env = s.do(http.MethodPost, "/rpc/linkProvider", `not json`, true)
	s.Assert().Equal(http.StatusBadRequest, rec.Code)
	s.Assert().Equal("INVALID_ARGUMENT", env.Error.Status)
}

func (s *APISuite) TestLinkProvider_ExchangeFailureHidesCause() {
	s.fit.On("Configured").Return(true)
	s.fit.On("Exchange", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("provider said secret"))

	rec, env := s.do(http.MethodPost, "/rpc/linkProvider", `{"data":{"authCode":"c","redirectUri":"r"}}`, true)
	s.Assert().Equal(http.StatusInternalServerError, rec.Code)
	s.Assert().Equal("INTERNAL", env.Error.Status)
	s.Assert().Equal("Failed to exchange authorization code.", env.Error.Message)
	s.Assert().NotContains(rec.Body.String(), "secret")
}

func (s *APISuite) TestGetDay() {
	s.Require().NoError(s.store.PutDeviceSteps(s.ctx, "u2", "2025-03-10", 4321))

	rec, _ := s.do(http.MethodGet, "/v1/users/u2/steps/2025-03-10", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Assert().Equal(4321.0, body["count"])
	s.Assert().Equal("healthConnect", body["provider"])

	rec, env := s.do(http.MethodGet, "/v1/users/u2/steps/2025-03-11", "", true)
	s.Assert().Equal(http.StatusNotFound, rec.Code)
	s.Assert().Equal("NOT_FOUND", env.Error.Status)

	rec, _ = s.do(http.MethodGet, "/v1/users/u2/steps/yesterday", "", true)
	s.Assert().Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestAdminSync() {
	rec, _ := s.admin("X-Admin-Token", "admin-secret")
	s.Assert().Equal(http.StatusAccepted, rec.Code)
	s.Assert().Equal([]string{"admin"}, s.queue.reasons)

	rec, _ = s.admin("Authorization", "Bearer admin-secret")
	s.Assert().Equal(http.StatusAccepted, rec.Code)

	s.queue.err = worker.ErrQueueFull
	rec, env := s.admin("X-Admin-Token", "admin-secret")
	s.Assert().Equal(http.StatusPreconditionFailed, rec.Code)
	s.Assert().Equal("FAILED_PRECONDITION", env.Error.Status)
}

func (s *APISuite) TestAdminSync_RejectsUserToken() {
	rec, env := s.do(http.MethodPost, "/admin/sync", "", true)
	s.Assert().Equal(http.StatusForbidden, rec.Code)
	s.Require().NotNil(env.Error)
	s.Assert().Equal("PERMISSION_DENIED", env.Error.Status)

	rec, env = s.do(http.MethodPost, "/admin/sync", "", false)
	s.Assert().Equal(http.StatusUnauthorized, rec.Code)
	s.Assert().Equal("UNAUTHENTICATED", env.Error.Status)
	s.Assert().Empty(s.queue.reasons)
}

func (s *APISuite) TestAdminSync_DisabledWithoutToken() {
	s.server.AdminToken = ""
	rec, env := s.admin("X-Admin-Token", "")
	s.Assert().Equal(http.StatusForbidden, rec.Code)
	s.Assert().Equal("PERMISSION_DENIED", env.Error.Status)
	s.Assert().Empty(s.queue.reasons)
}

func (s *APISuite) TestHealthChecks() {
	rec, _ := s.do(http.MethodGet, "/healthz", "", false)
	s.Assert().Equal(http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/readyz", "", false)
	s.Assert().Equal(http.StatusOK, rec.Code)

	s.server.DB = fakePinger{err: errors.New("closed")}
	rec, _ = s.do(http.MethodGet, "/readyz", "", false)
	s.Assert().Equal(http.StatusServiceUnavailable, rec.Code)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}
