package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/agent"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

// Runner executes one campaign run.
type Runner interface {
	Run(ctx context.Context, brief models.Brief) models.Report
}

type A2AHandler struct {
	runner Runner
	logger *zap.Logger
}

func NewA2AHandler(runner Runner, logger *zap.Logger) *A2AHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &A2AHandler{
		runner: runner,
		logger: logger,
	}
}

// RequestLoggingMiddleware logs every request with its status and latency.
// Bodies are logged at debug level only.
func RequestLoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		if logger.Core().Enabled(zap.DebugLevel) && c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			logger.Debug("Incoming request body",
				zap.String("path", c.Request.URL.Path),
				zap.ByteString("body", bodyBytes))
		}

		c.Next()

		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// HandleCampaign processes A2A messages
func (h *A2AHandler) HandleCampaign(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read request body", zap.Error(err))
		h.sendErrorResponse(c, "", "Failed to read request body", CodeParseError)
		return
	}

	var rpcReq JSONRPCRequest
	if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil {
		h.logger.Warn("Failed to decode request as JSON-RPC", zap.Error(err))
		h.sendErrorResponse(c, "", "Invalid request format", CodeParseError)
		return
	}

	// Some clients post the message params without the JSON-RPC envelope.
	if rpcReq.JSONRPC == "" && rpcReq.Method == "" {
		h.handleDirectMessage(c, bodyBytes)
		return
	}

	if rpcReq.JSONRPC != "2.0" {
		h.logger.Warn("Invalid JSON-RPC version", zap.String("version", rpcReq.JSONRPC))
		h.sendErrorResponse(c, rpcReq.ID, "Invalid JSON-RPC version", CodeInvalidRequest)
		return
	}

	switch rpcReq.Method {
	case "agent/task", "message/send":
		h.handleTask(c, rpcReq)
	default:
		h.logger.Warn("Unknown method", zap.String("method", rpcReq.Method))
		h.sendErrorResponse(c, rpcReq.ID, fmt.Sprintf("Method not found: %s", rpcReq.Method), CodeMethodNotFound)
	}
}

// handleDirectMessage handles a message without the JSON-RPC wrapper
func (h *A2AHandler) handleDirectMessage(c *gin.Context, bodyBytes []byte) {
	var msgParams MessageParams
	if err := json.Unmarshal(bodyBytes, &msgParams); err != nil || len(msgParams.Message.Parts) == 0 {
		h.sendErrorResponse(c, "", "Invalid request format", CodeParseError)
		return
	}
	h.runTask(c, "direct-message", msgParams.Message)
}

func (h *A2AHandler) handleTask(c *gin.Context, rpcReq JSONRPCRequest) {
	var msgParams MessageParams
	if err := json.Unmarshal(rpcReq.Params, &msgParams); err != nil {
		h.logger.Warn("Failed to unmarshal params", zap.Error(err))
		h.sendErrorResponse(c, rpcReq.ID, "Invalid parameters", CodeInvalidParams)
		return
	}
	h.runTask(c, rpcReq.ID, msgParams.Message)
}

func (h *A2AHandler) runTask(c *gin.Context, taskID string, msg A2AMessage) {
	brief := ExtractBrief(msg, h.logger)
	h.logger.Info("Extracted campaign brief",
		zap.String("task_id", taskID),
		zap.String("brief", brief.Goal),
		zap.String("mode", string(brief.Mode)),
		zap.String("target", string(brief.Target)))

	report := h.runner.Run(c.Request.Context(), brief)
	if !report.OK {
		h.sendSuccessResponse(c, taskID, h.createErrorTaskResult(taskID, report.Status))
		return
	}
	h.sendSuccessResponse(c, taskID, h.createSuccessTaskResult(taskID, report))
}

// ServeAgentCard serves the agent card using Gin
func (h *A2AHandler) ServeAgentCard(c *gin.Context) {
	if err := agent.LoadAgentCard(); err != nil {
		h.logger.Error("Error loading agent card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Agent card not available"})
		return
	}
	c.Data(http.StatusOK, "application/json", agent.AgentCardData)
}

type briefOptions struct {
	Brief  string      `json:"brief"`
	Filter string      `json:"filter"`
	Mode   string      `json:"mode"`
	Target string      `json:"target"`
	Lead   models.Lead `json:"lead"`
}

// ExtractBrief builds a Brief from a message. Text parts form the goal. A
// data part may be an options object or, as some chat platforms send it,
// the conversation history, from which the latest user text is taken.
func ExtractBrief(msg A2AMessage, logger *zap.Logger) models.Brief {
	var texts []string
	var opts briefOptions

	for _, part := range msg.Parts {
		switch part.Kind {
		case "text":
			if t := cleanText(part.Text); t != "" {
				texts = append(texts, t)
			}
		case "data":
			data := bytes.TrimSpace(part.Data)
			if len(data) == 0 {
				continue
			}
			switch data[0] {
			case '{':
				if err := json.Unmarshal(data, &opts); err != nil {
					logger.Warn("Failed to decode data part options", zap.Error(err))
				}
			case '[':
				if t := latestUserText(data, logger); t != "" {
					texts = append(texts, t)
				}
			}
		}
	}

	goal := strings.TrimSpace(strings.Join(texts, " "))
	if goal == "" {
		goal = strings.TrimSpace(opts.Brief)
	}
	return models.Brief{
		Goal:   goal,
		Filter: strings.TrimSpace(opts.Filter),
		Mode:   models.ParseMode(opts.Mode),
		Target: models.ParseTarget(opts.Target),
		Lead:   opts.Lead,
	}
}

func latestUserText(data []byte, logger *zap.Logger) string {
	var history []map[string]interface{}
	if err := json.Unmarshal(data, &history); err != nil {
		logger.Warn("Failed to unmarshal data part", zap.Error(err))
		return ""
	}

	for i := len(history) - 1; i >= 0; i-- {
		item := history[i]
		if kind, _ := item["kind"].(string); kind != "text" {
			continue
		}
		text, _ := item["text"].(string)
		text = cleanText(text)
		lower := strings.ToLower(text)
		// Skip the agent's own progress messages.
		if strings.Contains(lower, "generating") || strings.Contains(lower, "launching") ||
			strings.Trim(text, ".") == "" {
			continue
		}
		return text
	}
	return ""
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "<p>", "")
	s = strings.ReplaceAll(s, "</p>", "")
	return strings.TrimSpace(s)
}

func (h *A2AHandler) createSuccessTaskResult(taskID string, report models.Report) TaskResult {
	responseText := FormatReport(report)

	artifacts := []Artifact{
		{
			ArtifactID: uuid.New().String(),
			Name:       "Campaign Report",
			Parts:      []MessagePart{TextPart(responseText), DataPart(report.Deployment)},
		},
	}
	if report.HTML != "" {
		artifacts = append(artifacts, Artifact{
			ArtifactID: uuid.New().String(),
			Name:       CampaignArtifactName,
			MimeType:   "text/html",
			Parts:      []MessagePart{TextPart(report.HTML)},
		})
	}

	return TaskResult{
		ID:        taskID,
		ContextID: report.RunID,
		Kind:      "task",
		Status: TaskStatus{
			State:     StateCompleted,
			Timestamp: Timestamp(),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.New().String(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(responseText)},
			},
		},
		Artifacts: artifacts,
	}
}

func (h *A2AHandler) createErrorTaskResult(taskID string, errorMsg string) TaskResult {
	return TaskResult{
		ID:   taskID,
		Kind: "task",
		Status: TaskStatus{
			State:     StateFailed,
			Timestamp: Timestamp(),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.New().String(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(errorMsg)},
			},
		},
	}
}

// FormatReport renders a report as markdown for chat clients.
func FormatReport(report models.Report) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("# Campaign: %s\n\n", report.CampaignName))
	builder.WriteString(report.Status)
	builder.WriteString("\n\n")

	if report.Locator != "" {
		builder.WriteString(fmt.Sprintf("**Page:** %s\n", report.Locator))
	}
	builder.WriteString(fmt.Sprintf("**Leads:** %s\n", report.LeadsNote))
	if report.PushNote != "" {
		builder.WriteString(fmt.Sprintf("**New lead:** %s\n", report.PushNote))
	}

	if len(report.Warnings) > 0 {
		builder.WriteString("\n**Warnings:**\n")
		for _, w := range report.Warnings {
			builder.WriteString(fmt.Sprintf("- %s: %s\n", w.Stage, w.Message))
		}
	}
	return builder.String()
}

func (h *A2AHandler) sendSuccessResponse(c *gin.Context, id string, result interface{}) {
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (h *A2AHandler) sendErrorResponse(c *gin.Context, id string, message string, code int) {
	h.logger.Debug("Sending RPC error", zap.Int("code", code), zap.String("message", message))
	// JSON-RPC errors are sent with 200 OK
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
