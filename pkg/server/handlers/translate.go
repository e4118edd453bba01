package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/aqqu"
	"github.com/soundprediction/aqqu/pkg/execution"
	"github.com/soundprediction/aqqu/pkg/ranker"
	"github.com/soundprediction/aqqu/pkg/server/dto"
	"github.com/soundprediction/aqqu/pkg/types"
)

// ScorerFactory builds rankers by name.
type ScorerFactory interface {
	New(name string) (ranker.Ranker, error)
	Names() []string
}

// TranslateHandler handles translation requests
type TranslateHandler struct {
	service      aqqu.Service
	scorers      ScorerFactory
	defaultLimit int
}

// NewTranslateHandler creates a new translate handler. A limit of zero or
// less uses execution.DefaultLimit.
func NewTranslateHandler(service aqqu.Service, scorers ScorerFactory, defaultLimit int) *TranslateHandler {
	if defaultLimit <= 0 {
		defaultLimit = execution.DefaultLimit
	}
	return &TranslateHandler{
		service:      service,
		scorers:      scorers,
		defaultLimit: defaultLimit,
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.ErrorResponse{Error: code, Message: message, Code: status})
}

func (h *TranslateHandler) bind(c *gin.Context) (*dto.TranslateRequest, bool) {
	var req dto.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return nil, false
	}
	return &req, true
}

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrEmptyText), errors.Is(err, execution.ErrNegativeLimit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Translate handles POST /api/v1/translate
func (h *TranslateHandler) Translate(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	q, candidates, err := h.service.TranslateQuery(c.Request.Context(), req.Question)
	if err != nil {
		writeError(c, statusFor(err), "translation_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.NewTranslateResponse(q, candidates))
}

// Answer handles POST /api/v1/answer
func (h *TranslateHandler) Answer(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	limit := h.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	q, results, stats, err := h.service.TranslateAndExecuteQueryWithStats(c.Request.Context(), req.Question, limit)
	if err != nil {
		writeError(c, statusFor(err), "execution_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.NewAnswerResponse(q, results, stats))
}

// GetScorer handles GET /api/v1/scorer
func (h *TranslateHandler) GetScorer(c *gin.Context) {
	c.JSON(http.StatusOK, h.scorerResponse())
}

// SetScorer handles PUT /api/v1/scorer
func (h *TranslateHandler) SetScorer(c *gin.Context) {
	var req dto.SetScorerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if h.scorers == nil {
		writeError(c, http.StatusNotImplemented, "not_supported", "no scorer catalogue configured")
		return
	}

	scorer, err := h.scorers.New(req.Name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ranker.ErrUnknownRanker) {
			status = http.StatusBadRequest
		}
		writeError(c, status, "invalid_scorer", err.Error())
		return
	}
	if err := h.service.SetScorer(scorer); err != nil {
		writeError(c, http.StatusInternalServerError, "scorer_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.scorerResponse())
}

func (h *TranslateHandler) scorerResponse() dto.ScorerResponse {
	scorer := h.service.Scorer()
	resp := dto.ScorerResponse{
		Name:         scorer.Name(),
		EntityLinker: string(scorer.Parameters().EntityLinker),
		Available:    []string{},
	}
	if h.scorers != nil {
		resp.Available = h.scorers.Names()
	}
	return resp
}
