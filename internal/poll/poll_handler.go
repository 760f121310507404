package poll

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type PollHandler struct {
	pollService PollService
}

func NewPollHandler(pollService PollService) *PollHandler {
	return &PollHandler{pollService: pollService}
}

// CreatePoll godoc
// @Summary      Create a poll
// @Description  Creates a poll with a question and at least two options
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        poll  body  CreatePollRequest  true  "Poll to create"
// @Success      201  {object}  Poll
// @Failure      400  {object}  map[string]string
// @Router       /polls [post]
func (h *PollHandler) CreatePoll(c *gin.Context) {
	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poll, err := h.pollService.CreatePoll(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, poll)
}

// Vote godoc
// @Summary      Cast a vote
// @Description  Validates the vote and enqueues it for asynchronous processing
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        pollId  path  int          true  "Poll ID"
// @Param        vote    body  VoteRequest  true  "Vote to cast"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /polls/{pollId}/vote [post]
func (h *PollHandler) Vote(c *gin.Context) {
	pollID, err := parseID(c.Param("pollId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pollService.Vote(c.Request.Context(), pollID, &req); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "vote registered successfully"})
}

// GetPollResults godoc
// @Summary      Poll results
// @Description  Returns the poll tally with per-option percentages (creator only)
// @Tags         polls
// @Produce      json
// @Param        pollId  path   int  true  "Poll ID"
// @Param        userId  query  int  true  "Creator user ID"
// @Success      200  {object}  PollResult
// @Failure      404  {object}  map[string]string
// @Router       /polls/{pollId} [get]
func (h *PollHandler) GetPollResults(c *gin.Context) {
	pollID, err := parseID(c.Param("pollId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	userID, err := parseID(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	result, err := h.pollService.GetPollResults(c.Request.Context(), pollID, userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTopPolls godoc
// @Summary      Leaderboard
// @Description  Top 10 active polls ordered by total votes
// @Tags         leaderboard
// @Produce      json
// @Success      200  {array}  PollResult
// @Router       /leaderboard [get]
func (h *PollHandler) GetTopPolls(c *gin.Context) {
	results, err := h.pollService.GetTopPolls(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *PollHandler) RegisterRoutes(r *gin.Engine) {
	polls := r.Group("/polls")
	{
		polls.POST("", h.CreatePoll)
		polls.POST("/:pollId/vote", h.Vote)
		polls.GET("/:pollId", h.GetPollResults)
	}
	r.GET("/leaderboard", h.GetTopPolls)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrPollNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBrokerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPollInactive),
		errors.Is(err, ErrPollExpired),
		errors.Is(err, ErrOwnPoll),
		errors.Is(err, ErrInvalidPoll),
		errors.Is(err, ErrAlreadyVoted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
