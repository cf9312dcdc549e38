// Package api exposes campaign runs and the lead store over plain REST.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/a2a"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/leads"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

// Runner executes one campaign run.
type Runner interface {
	Run(ctx context.Context, brief models.Brief) models.Report
}

// LeadSyncer pulls and pushes leads.
type LeadSyncer interface {
	Pull(ctx context.Context, filter string) leads.PullResult
	Push(ctx context.Context, lead models.Lead) string
}

type Handler struct {
	runner Runner
	leads  LeadSyncer
	logger *zap.Logger
}

func NewHandler(runner Runner, syncer LeadSyncer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: runner, leads: syncer, logger: logger}
}

// Register mounts the REST routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/campaigns", h.CreateCampaign)
	r.POST("/campaigns/download", h.DownloadCampaign)
	r.GET("/leads", h.ListLeads)
	r.POST("/leads", h.PushLead)
}

// CampaignRequest is the body of POST /campaigns. Mode and target accept
// the same labels as the A2A data part.
type CampaignRequest struct {
	Brief  string      `json:"brief"`
	Filter string      `json:"filter"`
	Mode   string      `json:"mode"`
	Target string      `json:"target"`
	Lead   models.Lead `json:"lead"`
}

func (r CampaignRequest) toBrief() models.Brief {
	return models.Brief{
		Goal:   strings.TrimSpace(r.Brief),
		Filter: strings.TrimSpace(r.Filter),
		Mode:   models.ParseMode(r.Mode),
		Target: models.ParseTarget(r.Target),
		Lead:   r.Lead,
	}
}

func (h *Handler) runFromRequest(c *gin.Context) (models.Report, bool) {
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid campaign request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return models.Report{}, false
	}

	report := h.runner.Run(c.Request.Context(), req.toBrief())
	if !report.OK {
		c.JSON(http.StatusUnprocessableEntity, report)
		return report, false
	}
	return report, true
}

// CreateCampaign runs a campaign and returns the full report.
func (h *Handler) CreateCampaign(c *gin.Context) {
	report, ok := h.runFromRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// DownloadCampaign runs a campaign and returns the page as an attachment.
func (h *Handler) DownloadCampaign(c *gin.Context) {
	report, ok := h.runFromRequest(c)
	if !ok {
		return
	}
	if report.HTML == "" {
		c.JSON(http.StatusUnprocessableEntity, report)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+a2a.CampaignArtifactName+`"`)
	c.Header("X-Campaign-Status", report.Status)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(report.HTML))
}

// ListLeads returns the leads matching ?filter=.
func (h *Handler) ListLeads(c *gin.Context) {
	res := h.leads.Pull(c.Request.Context(), c.Query("filter"))
	list := res.Leads
	if list == nil {
		list = []models.Lead{}
	}
	c.JSON(http.StatusOK, gin.H{
		"leads":    list,
		"count":    len(list),
		"message":  res.Message,
		"source":   res.Source,
		"degraded": res.Degraded,
	})
}

// PushLead stores the JSON object in the body as a new lead.
func (h *Handler) PushLead(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Lead must be a JSON object"})
		return
	}
	if len(lead) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Lead is empty"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": h.leads.Push(c.Request.Context(), lead)})
}
