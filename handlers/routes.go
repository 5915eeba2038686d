package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware plugs the cross-cutting handlers into Register. Nil entries are skipped.
type Middleware struct {
	Auth      gin.HandlerFunc
	AuthLimit gin.HandlerFunc // public auth endpoints, per client IP
	TipLimit  gin.HandlerFunc // advisor endpoint, per user
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine, mw Middleware) {
	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": h.cfg.AppName,
		})
	})

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth", chain(mw.AuthLimit)...)
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
	}

	// ==========================================
	// API ROUTES (authenticated)
	// ==========================================
	api := r.Group("/api", chain(mw.Auth)...)
	{
		// User
		api.GET("/users/me", h.GetProfile)
		api.PUT("/users/me", h.UpdateProfile)
		api.PUT("/users/me/fcm-token", h.UpdateFCMToken)

		// Houses
		api.POST("/houses", h.CreateHouse)
		api.GET("/houses/current", h.GetCurrentHouse)
		api.POST("/houses/join", h.JoinHouse)
		api.PUT("/houses/:id", h.UpdateHouse)
		api.DELETE("/houses/:id", h.DeleteHouse)
		api.POST("/houses/:id/leave", h.LeaveHouse)
		api.POST("/houses/:id/invite", h.InviteToHouse)

		// Expenses
		api.POST("/houses/:id/expenses", h.CreateExpense)
		api.GET("/houses/:id/expenses", h.GetHouseExpenses)
		api.GET("/expenses/:id", h.GetExpense)
		api.PUT("/expenses/:id", h.UpdateExpense)
		api.DELETE("/expenses/:id", h.DeleteExpense)

		// Balances
		api.GET("/houses/:id/summary", h.GetSummary)
		api.POST("/houses/:id/settle", h.Settle)
		api.GET("/houses/:id/settlements", h.GetHouseSettlements)

		// Advisor
		api.GET("/houses/:id/tip", append(chain(mw.TipLimit), h.GetTip)...)

		// Activity & live updates
		api.GET("/houses/:id/activity", h.GetHouseActivity)
		api.GET("/houses/:id/events", h.StreamEvents)
	}
}
