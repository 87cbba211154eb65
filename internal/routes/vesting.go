package routes

import (
	"github.com/gin-gonic/gin"

	"tokenvesting/internal/handlers"
)

// SetupVestingRoutes sets up all routes related to vesting pools, grants and claims
func SetupVestingRoutes(r *gin.Engine, h *handlers.VestingHandler, auth gin.HandlerFunc) {
	pool := r.Group("/vesting-pool")
	{
		pool.GET("", h.ListPools)
		pool.POST("", auth, h.CreatePool)
		pool.GET("/:company", h.GetPool)
		pool.POST("/:company/fund", auth, h.FundPool)
		pool.POST("/:company/claim", auth, h.Claim)

		grant := pool.Group("/:company/grant")
		{
			grant.GET("", h.ListGrants)
			grant.POST("", auth, h.CreateGrant)
			grant.GET("/:beneficiary", h.GetGrant)
			grant.GET("/:beneficiary/preview", h.PreviewClaim)
		}
	}
}

// SetupClaimStreamRoutes exposes the websocket claim stream
func SetupClaimStreamRoutes(r *gin.Engine, stream *handlers.ClaimStream) {
	r.GET("/ws/claims", stream.Serve)
}
