package main

import (
	"database/sql"
	"time"

	"setter-platform/internal/audit"
	"setter-platform/internal/auth"
	"setter-platform/internal/calls"
	"setter-platform/internal/config"
	"setter-platform/internal/httpapi"
	"setter-platform/internal/leads"
	"setter-platform/internal/rbac"
	"setter-platform/internal/reporting"
	"setter-platform/internal/telephony"
	"setter-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type routeDeps struct {
	cfg      config.Config
	auth     *auth.Manager
	manager  *calls.Manager
	sessions calls.SnapshotRepo
	gateway  leads.Gateway
	dedup    leads.DedupStore
	dialer   *telephony.TwilioDialer
	audit    *audit.Service
	reports  *reporting.Service
	db       *sql.DB
	redis    *redis.Client
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := deps.redis.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by Twilio signature validation in production.
	{
		h := telephony.WebhookHandler{
			Core:    deps.manager,
			BaseURL: deps.cfg.Twilio.WebhookBaseURL,
		}
		r.POST("/webhooks/twilio/voice", h.HandleVoice)
		r.POST("/webhooks/twilio/speech", h.HandleSpeech)
		r.POST("/webhooks/twilio/status", h.HandleStatus)
	}

	h := httpapi.Handlers{
		Auth:       deps.auth,
		Reports:    deps.reports,
		Sessions:   deps.sessions,
		Manager:    deps.manager,
		Gateway:    deps.gateway,
		Dedup:      deps.dedup,
		Dialer:     deps.dialer,
		Audit:      deps.audit,
		LeadWindow: deps.cfg.Leads.RecencyWindow,
	}

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(deps.auth))
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "role": role})
		})

		// DASHBOARD routes (any authenticated role)
		dash := v1.Group("/dashboard")
		dash.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleViewer))
		{
			dash.GET("/", h.Dashboard)
		}

		// CALLS routes
		callsGroup := v1.Group("/calls")
		callsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleViewer))
		{
			callsGroup.GET("/:call_id", h.GetCall)
			callsGroup.GET("/:call_id/recording", h.GetRecording)
		}

		// Manual dialing requires an operating role.
		dialGroup := v1.Group("/calls")
		dialGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator))
		{
			dialGroup.POST("/", h.MakeCall)
		}

		// LEADS routes
		leadsGroup := v1.Group("/leads")
		leadsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleViewer))
		{
			leadsGroup.GET("/", h.ListLeads)
		}
	}
}
