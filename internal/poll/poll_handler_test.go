package poll

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	createPoll func(ctx context.Context, req *CreatePollRequest) (*Poll, error)
	vote       func(ctx context.Context, pollID uint, req *VoteRequest) error
	results    func(ctx context.Context, pollID, userID uint) (*PollResult, error)
	topPolls   func(ctx context.Context) ([]*PollResult, error)
}

func (s *stubService) CreatePoll(ctx context.Context, req *CreatePollRequest) (*Poll, error) {
	return s.createPoll(ctx, req)
}

func (s *stubService) Vote(ctx context.Context, pollID uint, req *VoteRequest) error {
	return s.vote(ctx, pollID, req)
}

func (s *stubService) GetPollResults(ctx context.Context, pollID, userID uint) (*PollResult, error) {
	return s.results(ctx, pollID, userID)
}

func (s *stubService) GetTopPolls(ctx context.Context) ([]*PollResult, error) {
	return s.topPolls(ctx)
}

func newTestRouter(svc PollService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewPollHandler(svc).RegisterRoutes(router)
	return router
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreatePollEndpoint(t *testing.T) {
	t.Run("ReturnsCreatedPoll", func(t *testing.T) {
		router := newTestRouter(&stubService{
			createPoll: func(_ context.Context, req *CreatePollRequest) (*Poll, error) {
				return &Poll{ID: 1, Question: req.Question, Active: true}, nil
			},
		})

		rec := doJSON(router, http.MethodPost, "/polls", CreatePollRequest{
			UserID:    1,
			Question:  "q",
			Options:   []string{"a", "b"},
			ExpiresAt: mustTime(t, "2027-01-01T00:00:00Z"),
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		var created Poll
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, uint(1), created.ID)
		assert.True(t, created.Active)
	})

	t.Run("RejectsBodyWithOneOption", func(t *testing.T) {
		router := newTestRouter(&stubService{})
		rec := doJSON(router, http.MethodPost, "/polls", gin.H{
			"userId":    1,
			"question":  "q",
			"options":   []string{"only"},
			"expiresAt": "2027-01-01T00:00:00Z",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestVoteEndpoint(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"Accepted", nil, http.StatusOK},
		{"UnknownPoll", ErrPollNotFound, http.StatusNotFound},
		{"InactivePoll", ErrPollInactive, http.StatusBadRequest},
		{"ExpiredPoll", ErrPollExpired, http.StatusBadRequest},
		{"OwnPoll", ErrOwnPoll, http.StatusBadRequest},
		{"BrokerDown", ErrBrokerUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubService{
				vote: func(context.Context, uint, *VoteRequest) error { return tc.err },
			})
			rec := doJSON(router, http.MethodPost, "/polls/1/vote", VoteRequest{UserID: 7, OptionID: 10})
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	t.Run("RejectsNonNumericPollID", func(t *testing.T) {
		router := newTestRouter(&stubService{})
		rec := doJSON(router, http.MethodPost, "/polls/abc/vote", VoteRequest{UserID: 7, OptionID: 10})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetPollResultsEndpoint(t *testing.T) {
	t.Run("ReturnsTallyForCreator", func(t *testing.T) {
		router := newTestRouter(&stubService{
			results: func(_ context.Context, pollID, userID uint) (*PollResult, error) {
				require.Equal(t, uint(1), pollID)
				require.Equal(t, uint(5), userID)
				return &PollResult{ID: 1, TotalVoteCount: 2, Options: []OptionResult{
					{ID: 10, VoteCount: 2, Percentage: "100.00"},
				}}, nil
			},
		})

		rec := doJSON(router, http.MethodGet, "/polls/1?userId=5", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var result PollResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "100.00", result.Options[0].Percentage)
	})

	t.Run("RequiresUserID", func(t *testing.T) {
		router := newTestRouter(&stubService{})
		rec := doJSON(router, http.MethodGet, "/polls/1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("HidesForeignPoll", func(t *testing.T) {
		router := newTestRouter(&stubService{
			results: func(context.Context, uint, uint) (*PollResult, error) {
				return nil, ErrPollNotFound
			},
		})
		rec := doJSON(router, http.MethodGet, "/polls/1?userId=6", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	router := newTestRouter(&stubService{
		topPolls: func(context.Context) ([]*PollResult, error) {
			return []*PollResult{{ID: 1}, {ID: 2}}, nil
		},
	})

	rec := doJSON(router, http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []*PollResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 2)
}
