package httpapi

import (
	"net/http"
	"time"

	"setter-platform/internal/audit"
	"setter-platform/internal/auth"
	"setter-platform/internal/calls"
	"setter-platform/internal/leads"
	"setter-platform/internal/reporting"
	"setter-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Reports  *reporting.Service
	Sessions calls.SnapshotRepo
	Manager  *calls.Manager
	Gateway  leads.Gateway
	Dedup    leads.DedupStore
	Dialer   *telephony.TwilioDialer
	Audit    *audit.Service

	LeadWindow time.Duration
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT access token.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and role required"})
		return
	}
	tok, err := h.Auth.IssueAccess(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok})
}

// --- Dashboard ---

func (h Handlers) Dashboard(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	out, err := h.Reports.DashboardSummary(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Calls ---

func (h Handlers) GetCall(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storage not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}
	s, ok, err := h.Sessions.FindByCallID(c.Request.Context(), callID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetRecording resolves the provider media URL for a call's recording.
// The URL requires provider credentials to fetch; we return it rather than
// proxying audio through this service.
func (h Handlers) GetRecording(c *gin.Context) {
	if h.Sessions == nil || h.Dialer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "recordings not configured"})
		return
	}
	callID := c.Param("call_id")
	s, ok, err := h.Sessions.FindByCallID(c.Request.Context(), callID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !ok || s.RecordingSID == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no recording for call"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"call_id":       s.CallID,
		"recording_sid": s.RecordingSID,
		"media_url":     h.Dialer.RecordingMediaURL(s.RecordingSID),
	})
}

// --- Leads ---

func (h Handlers) ListLeads(c *gin.Context) {
	if h.Gateway == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead gateway not configured"})
		return
	}
	window := h.LeadWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	out, err := h.Gateway.FetchRecent(c.Request.Context(), window)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "lead fetch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": out, "window": window.String()})
}

// --- Manual dial ---

type makeCallRequest struct {
	LeadID    string `json:"lead_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

// MakeCall places a call outside the scheduler loop. The lead still enters
// the dedup set so the scheduler will not dial it again.
// RBAC: owner or operator.
func (h Handlers) MakeCall(c *gin.Context) {
	if h.Manager == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call manager not configured"})
		return
	}
	var req makeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.LeadID == "" || req.Phone == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lead_id and phone required"})
		return
	}

	if h.Dedup != nil {
		if err := h.Dedup.Add(c.Request.Context(), req.LeadID); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dedup write failed"})
			return
		}
	}

	s, err := h.Manager.Open(c.Request.Context(), leads.Lead{
		ID:        req.LeadID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Source:    "manual",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.Audit != nil {
		userID, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		_ = h.Audit.LogAdminAction(c.Request.Context(), userID, role, c.ClientIP(),
			"manual dial for lead "+req.LeadID, "")
	}

	c.JSON(http.StatusOK, gin.H{"call_id": s.CallID, "state": s.State})
}
