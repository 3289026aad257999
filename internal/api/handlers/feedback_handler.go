package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mirelio/echodesk/internal/cache"
	"github.com/mirelio/echodesk/internal/models"
	"github.com/mirelio/echodesk/internal/pipeline"
	mongorepo "github.com/mirelio/echodesk/internal/repositories/mongo"
	"github.com/mirelio/echodesk/internal/repositories/postgres"
	"github.com/mirelio/echodesk/internal/utils"
	"github.com/mirelio/echodesk/internal/validate"
)

const statsCacheTTL = 30 * time.Second

type FeedbackHandler struct {
	orch   *pipeline.Orchestrator
	repo   postgres.FeedbackRepository
	traces mongorepo.StageTraceRepository // optional
	cache  cache.Cache                    // optional
}

func NewFeedbackHandler(orch *pipeline.Orchestrator, repo postgres.FeedbackRepository, traces mongorepo.StageTraceRepository, ch cache.Cache) *FeedbackHandler {
	return &FeedbackHandler{orch: orch, repo: repo, traces: traces, cache: ch}
}

type SubmitFeedbackRequest struct {
	Text     string `json:"text" binding:"required"`
	Category string `json:"category"`
}

type PaginationMeta struct {
	Page    int   `json:"page"`
	Pages   int   `json:"pages"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "FeedbackHandler.Submit", "invalid request body", err))
		return
	}

	fb, err := h.orch.Submit(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"data":    fb,
		"message": "Feedback submitted and queued for processing",
	})
}

func (h *FeedbackHandler) Get(c *gin.Context) {
	fb, err := h.repo.GetWithResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (h *FeedbackHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	page, perPage = validate.Pagination(page, perPage)
	category := validate.CategoryFilter(c.Query("category"))

	rows, total, err := h.repo.ListPage(c.Request.Context(), page, perPage, category)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "FeedbackHandler.List", "failed to list feedback", err))
		return
	}
	if rows == nil {
		rows = []models.Feedback{}
	}

	pages := int(math.Ceil(float64(total) / float64(perPage)))
	c.JSON(http.StatusOK, gin.H{
		"items": rows,
		"pagination": PaginationMeta{
			Page:    page,
			Pages:   pages,
			PerPage: perPage,
			Total:   total,
			HasNext: page < pages,
			HasPrev: page > 1,
		},
	})
}

// Trace exposes the per-stage processing log kept in Mongo.
func (h *FeedbackHandler) Trace(c *gin.Context) {
	const op = "FeedbackHandler.Trace"

	if h.traces == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "stage tracing is not enabled", nil))
		return
	}

	id := c.Param("id")
	if _, err := h.repo.GetWithResults(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	traces, err := h.traces.ListByFeedback(c.Request.Context(), id)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to load stage traces", err))
		return
	}
	if traces == nil {
		traces = []models.StageTrace{}
	}

	c.JSON(http.StatusOK, gin.H{"feedback_id": id, "stages": traces})
}

func (h *FeedbackHandler) DashboardStats(c *gin.Context) {
	const op = "FeedbackHandler.DashboardStats"
	ctx := c.Request.Context()

	var stats *postgres.DashboardStats
	var err error
	if h.cache != nil {
		stats, err = cache.Remember(ctx, h.cache, "dashboard:stats", statsCacheTTL, h.repo.Stats)
	} else {
		stats, err = h.repo.Stats(ctx)
	}
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to compute stats", err))
		return
	}
	c.JSON(http.StatusOK, stats)
}
