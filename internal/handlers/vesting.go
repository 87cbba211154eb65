package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tokenvesting/internal/metrics"
	"tokenvesting/internal/middleware"
	"tokenvesting/internal/vesting"
)

// VestingHandler serves pools, grants and claims.
type VestingHandler struct {
	pools  *vesting.PoolManager
	grants *vesting.GrantManager
	claims *vesting.ClaimEngine
	now    func() time.Time
}

func NewVestingHandler(pools *vesting.PoolManager, grants *vesting.GrantManager, claims *vesting.ClaimEngine) *VestingHandler {
	return &VestingHandler{pools: pools, grants: grants, claims: claims, now: time.Now}
}

// WithClock replaces the clock used for claims and default previews.
func (h *VestingHandler) WithClock(now func() time.Time) *VestingHandler {
	h.now = now
	return h
}

func caller(c *gin.Context) (string, bool) {
	id, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
	}
	return id, ok
}

// CreatePool creates a vesting pool owned by the caller
func (h *VestingHandler) CreatePool(c *gin.Context) {
	admin, ok := caller(c)
	if !ok {
		return
	}

	var request CreatePoolRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	pool, err := h.pools.CreatePool(c.Request.Context(), vesting.CreatePoolRequest{
		Administrator:        admin,
		CompanyName:          request.CompanyName,
		Asset:                request.Asset,
		AssetDecimals:        request.AssetDecimals,
		InitialFundingAmount: request.InitialFundingAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordPoolCreated()

	c.JSON(http.StatusCreated, VestingPoolResp{
		VestingPool:             *pool,
		TreasuryBalanceReadable: readable(0, pool.AssetDecimals),
	})
}

// ListPools returns all vesting pools
func (h *VestingHandler) ListPools(c *gin.Context) {
	pools, err := h.pools.Pools(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pools)
}

// GetPool returns a pool with its treasury balance
func (h *VestingHandler) GetPool(c *gin.Context) {
	ctx := c.Request.Context()
	pool, err := h.pools.Pool(ctx, c.Param("company"))
	if err != nil {
		respondError(c, err)
		return
	}
	balance, err := h.pools.TreasuryBalance(ctx, pool)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, VestingPoolResp{
		VestingPool:             *pool,
		TreasuryBalance:         balance,
		TreasuryBalanceReadable: readable(balance, pool.AssetDecimals),
	})
}

// FundPool deposits tokens from the caller into the pool treasury
func (h *VestingHandler) FundPool(c *gin.Context) {
	funder, ok := caller(c)
	if !ok {
		return
	}

	var request FundPoolRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	record, err := h.pools.FundPool(c.Request.Context(), funder, c.Param("company"), request.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// CreateGrant adds a beneficiary schedule to a pool; the caller must own the pool
func (h *VestingHandler) CreateGrant(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}

	var request CreateGrantRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	company := c.Param("company")
	grant, err := h.grants.CreateGrant(c.Request.Context(), vesting.CreateGrantRequest{
		Caller:      owner,
		CompanyName: company,
		Beneficiary: request.Beneficiary,
		StartTime:   request.StartTime,
		EndTime:     request.EndTime,
		CliffTime:   request.CliffTime,
		TotalAmount: request.TotalAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordGrantCreated()

	pool, err := h.pools.Pool(c.Request.Context(), company)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newGrantResp(grant, pool.AssetDecimals))
}

// ListGrants returns all grants of a pool
func (h *VestingHandler) ListGrants(c *gin.Context) {
	ctx := c.Request.Context()
	company := c.Param("company")
	pool, err := h.pools.Pool(ctx, company)
	if err != nil {
		respondError(c, err)
		return
	}
	grants, err := h.grants.Grants(ctx, company)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]GrantResp, 0, len(grants))
	for i := range grants {
		resp = append(resp, newGrantResp(&grants[i], pool.AssetDecimals))
	}
	c.JSON(http.StatusOK, resp)
}

// GetGrant returns a grant together with its current quote
func (h *VestingHandler) GetGrant(c *gin.Context) {
	pool, grant, err := h.grants.Grant(c.Request.Context(), c.Param("beneficiary"), c.Param("company"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := newGrantResp(grant, pool.AssetDecimals)
	quote, err := vesting.ScheduleOf(grant).Quote(grant.TotalClaimed, h.now().Unix())
	if err != nil {
		resp.QuoteError = err.Error()
	} else {
		resp.Quote = &quote
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewClaim evaluates a grant at ?at= (unix seconds, default now) without claiming
func (h *VestingHandler) PreviewClaim(c *gin.Context) {
	at := h.now().Unix()
	if raw := c.Query("at"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, "Invalid at format")
			return
		}
		at = v
	}

	ctx := c.Request.Context()
	company := c.Param("company")
	pool, err := h.pools.Pool(ctx, company)
	if err != nil {
		respondError(c, err)
		return
	}
	quote, err := h.claims.Preview(ctx, c.Param("beneficiary"), company, at)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PreviewResp{
		Quote:             quote,
		At:                at,
		VestedReadable:    readable(quote.Vested, pool.AssetDecimals),
		ClaimableReadable: readable(quote.Claimable, pool.AssetDecimals),
	})
}

// Claim pays the caller everything vested and not yet claimed
func (h *VestingHandler) Claim(c *gin.Context) {
	beneficiary, ok := caller(c)
	if !ok {
		return
	}

	var request ClaimRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	company := c.Param("company")
	result, err := h.claims.Claim(ctx, vesting.ClaimRequest{
		Caller:      beneficiary,
		Beneficiary: request.Beneficiary,
		CompanyName: company,
		Now:         h.now().Unix(),
	})
	if err != nil {
		metrics.RecordClaim(company, string(vesting.CodeOf(err)), 0)
		respondError(c, err)
		return
	}
	metrics.RecordClaim(company, "OK", result.Amount)

	var decimals uint8
	if pool, err := h.pools.Pool(ctx, company); err == nil {
		decimals = pool.AssetDecimals
	}
	c.JSON(http.StatusOK, ClaimResp{
		EventID:        result.Event.ID,
		Amount:         result.Amount,
		AmountReadable: readable(result.Amount, decimals),
		Vested:         result.Vested,
		TotalClaimed:   result.TotalClaimed,
		TotalAmount:    result.TotalAmount,
		Destination:    result.Destination,
		ClaimedAt:      result.Event.ClaimedAt,
	})
}
