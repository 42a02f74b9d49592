package http

import (
	"errors"
	"io"
	"net/http"

	"trivia-service/internal/app"
	"trivia-service/internal/auth"
	"trivia-service/internal/domain"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Identify resolves the caller once per request. Handlers decide whether an
// anonymous caller is acceptable.
func Identify(resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := resolver.Resolve(c.Request)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(identityKey, who)
		c.Next()
	}
}

func identity(c *gin.Context) domain.Identity {
	who, _ := c.Get(identityKey)
	id, _ := who.(domain.Identity)
	return id
}

// Handlers adapts GameService to gin.
type Handlers struct {
	service *app.GameService
}

type answerRequest struct {
	QuestionID    string  `json:"questionId" binding:"required"`
	Choice        string  `json:"choice" binding:"required"`
	TimeRemaining float64 `json:"timeRemaining"`
}

func (r answerRequest) submission() domain.AnswerSubmission {
	return domain.AnswerSubmission{QuestionID: r.QuestionID, Choice: r.Choice, TimeRemaining: r.TimeRemaining}
}

type advanceRequest struct {
	FromIndex *int `json:"fromIndex"`
}

type soloAdvanceRequest struct {
	ShowReview bool `json:"showReview"`
}

// bindOptional binds a JSON body that may be absent.
func bindOptional(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return false
	}
	return true
}

func (h *Handlers) CreateGame(c *gin.Context) {
	game, err := h.service.CreateGame(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}

func (h *Handlers) GetGame(c *gin.Context) {
	view, err := h.service.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) JoinGame(c *gin.Context) {
	participant, err := h.service.JoinGame(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func (h *Handlers) StartGame(c *gin.Context) {
	game, err := h.service.StartGame(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

func (h *Handlers) EnterReview(c *gin.Context) {
	game, err := h.service.EnterReview(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

func (h *Handlers) AdvanceQuestion(c *gin.Context) {
	var req advanceRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.service.AdvanceQuestion(c.Request.Context(), c.Param("id"), identity(c), req.FromIndex)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) SubmitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.service.SubmitAnswer(c.Request.Context(), c.Param("id"), identity(c), req.submission())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) GameLeaderboard(c *gin.Context) {
	lb, err := h.service.GameLeaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

func (h *Handlers) FindJoinable(c *gin.Context) {
	game, ok, err := h.service.FindJoinable(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"game": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (h *Handlers) EnsureGame(c *gin.Context) {
	res, err := h.service.EnsureGame(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) CurrentGame(c *gin.Context) {
	game, ok, err := h.service.CurrentGame(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"game": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (h *Handlers) History(c *gin.Context) {
	participations, err := h.service.History(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participations": participations})
}

func (h *Handlers) CanHost(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"canHost": h.service.CanHost(identity(c))})
}

func (h *Handlers) CreateSoloGame(c *gin.Context) {
	game, player, err := h.service.CreateSoloGame(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"game": game, "participant": player})
}

func (h *Handlers) SubmitSoloAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.service.SubmitSoloAnswer(c.Request.Context(), c.Param("id"), req.submission())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) AdvanceSoloGame(c *gin.Context) {
	var req soloAdvanceRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.service.AdvanceSoloGame(c.Request.Context(), c.Param("id"), req.ShowReview)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) RecentLeaderboard(c *gin.Context) {
	lb, ok, err := h.service.RecentLeaderboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"leaderboard": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": lb})
}

func (h *Handlers) SoloLeaderboard(c *gin.Context) {
	lb, ok, err := h.service.SoloLeaderboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"leaderboard": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": lb})
}
