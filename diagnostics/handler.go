package diagnostics

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"obd-backend/diagnosis"
	"obd-backend/pkg/log"
	"obd-backend/suggestion"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes wires the endpoints used by the web client.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/diagnose", h.Diagnose)
	r.GET("/search_code", h.SearchCode)
	r.GET("/view_history", h.ViewHistory)
	r.GET("/codes", h.Codes)
	r.GET("/generate_report", h.GenerateReport)
	r.GET("/healthz", h.Health)
}

// --- Request/response models --- //

type diagnoseReq struct {
	CustomerComplaint string  `json:"customer_complaint"`
	MethodChoice      *int    `json:"method_choice"`
	DTCCode           *string `json:"dtc_code"`
	RelatedSymptoms   string  `json:"related_symptoms"`
	ProblemArea       string  `json:"problem_area"`
}

type diagnoseResp struct {
	Diagnosis  diagnosis.Record `json:"diagnosis"`
	Suggestion string           `json:"suggestion"`
}

// historyItem flattens the record next to the suggestion.
type historyItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	diagnosis.Record
	Suggestion string `json:"suggestion"`
}

// --- Handlers --- //

// Diagnose returns { diagnosis: {...}, suggestion: "..." }
func (h *Handler) Diagnose(c *gin.Context) {
	var req diagnoseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.MethodChoice == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method_choice is required"})
		return
	}
	log.Info("diagnose requested",
		zap.Int("method_choice", *req.MethodChoice),
		zap.Stringp("dtc_code", req.DTCCode))

	entry, err := h.svc.Diagnose(c.Request.Context(), diagnosis.Input{
		CustomerComplaint: req.CustomerComplaint,
		MethodChoice:      *req.MethodChoice,
		DTCCode:           req.DTCCode,
		RelatedSymptoms:   req.RelatedSymptoms,
		ProblemArea:       req.ProblemArea,
	})
	if err != nil {
		status := statusFor(err)
		log.Error("diagnose failed", zap.Int("status", status), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, diagnoseResp{Diagnosis: entry.Diagnosis, Suggestion: entry.Suggestion})
}

// SearchCode returns { result: "Code: ...\nDescription: ..." }
func (h *Handler) SearchCode(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	result := h.svc.SearchCode(code)
	log.Debug("code searched", zap.String("code", code), zap.String("result", result))
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *Handler) ViewHistory(c *gin.Context) {
	entries := h.svc.History()
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			ID:         e.ID,
			CreatedAt:  e.CreatedAt,
			Record:     e.Diagnosis,
			Suggestion: e.Suggestion,
		})
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) Codes(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Codes())
}

func (h *Handler) GenerateReport(c *gin.Context) {
	result, err := h.svc.GenerateReport()
	if err != nil {
		log.Error("report generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report could not be written"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "codes": h.svc.CodeCount()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, diagnosis.ErrInvalidMethodChoice):
		return http.StatusBadRequest
	case errors.Is(err, suggestion.ErrServiceTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, suggestion.ErrServiceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
