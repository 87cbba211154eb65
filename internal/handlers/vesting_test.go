package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenvesting/internal/handlers"
	"tokenvesting/internal/middleware"
	"tokenvesting/internal/routes"
	"tokenvesting/internal/store"
	"tokenvesting/internal/store/storetest"
	"tokenvesting/internal/vesting"
	solanautil "tokenvesting/pkg/solana"
)

type api struct {
	router *gin.Engine
	stream *handlers.ClaimStream
	now    int64
}

func newAPI(t *testing.T, auth middleware.AuthConfig) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	deriver, err := solanautil.NewDeriver("")
	require.NoError(t, err)
	ledger := store.NewLedger(storetest.OpenDB(t))

	a := &api{stream: handlers.NewClaimStream(nil)}
	t.Cleanup(a.stream.Close)

	h := handlers.NewVestingHandler(
		vesting.NewPoolManager(ledger, deriver),
		vesting.NewGrantManager(ledger, deriver, true),
		vesting.NewClaimEngine(ledger, deriver, a.stream),
	).WithClock(func() time.Time { return time.Unix(a.now, 0) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a.router = routes.SetupRouter(ctx, routes.Dependencies{
		Vesting:     h,
		ClaimStream: a.stream,
		Auth:        auth,
	})
	return a
}

func (a *api) do(t *testing.T, method, path, signer string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signer != "" {
		req.Header.Set(middleware.HeaderSigner, signer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func newIdentity() string {
	return solana.NewWallet().PublicKey().String()
}

func TestVestingAPI(t *testing.T) {
	a := newAPI(t, middleware.AuthConfig{Disabled: true})
	admin := newIdentity()
	beneficiary := newIdentity()
	asset := newIdentity()

	t.Run("Create Pool", func(t *testing.T) {
		w, resp := a.do(t, http.MethodPost, "/vesting-pool", admin, gin.H{
			"company_name":   "acme",
			"asset":          asset,
			"asset_decimals": 6,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "acme", resp["company_name"])
		assert.Equal(t, admin, resp["owner"])
		assert.NotEmpty(t, resp["treasury"])
	})

	t.Run("Duplicate Pool", func(t *testing.T) {
		w, resp := a.do(t, http.MethodPost, "/vesting-pool", admin, gin.H{
			"company_name": "acme",
			"asset":        asset,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_POOL", resp["code"])
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		w, resp := a.do(t, http.MethodPost, "/vesting-pool", "", gin.H{
			"company_name": "other",
			"asset":        asset,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", resp["code"])
	})

	t.Run("Bad Request Body", func(t *testing.T) {
		w, resp := a.do(t, http.MethodPost, "/vesting-pool", admin, gin.H{"asset": asset})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", resp["code"])
	})

	t.Run("Fund Pool", func(t *testing.T) {
		w, _ := a.do(t, http.MethodPost, "/vesting-pool/acme/fund", admin, gin.H{"amount": 1000})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w, resp := a.do(t, http.MethodPost, "/vesting-pool/acme/fund", admin, gin.H{"amount": 0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_AMOUNT", resp["code"])
	})

	grant := gin.H{
		"beneficiary":  beneficiary,
		"start_time":   1000,
		"cliff_time":   1500,
		"end_time":     2000,
		"total_amount": 1000,
	}

	t.Run("Create Grant", func(t *testing.T) {
		w, resp := a.do(t, http.MethodPost, "/vesting-pool/acme/grant", newIdentity(), grant)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "NOT_POOL_OWNER", resp["code"])

		w, resp = a.do(t, http.MethodPost, "/vesting-pool/acme/grant", admin, grant)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, beneficiary, resp["beneficiary"])
		assert.Equal(t, "0.001", resp["total_amount_readable"])

		w, resp = a.do(t, http.MethodPost, "/vesting-pool/acme/grant", admin, grant)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_GRANT", resp["code"])
	})

	t.Run("Invalid Schedule", func(t *testing.T) {
		w, resp := a.do(t, http.MethodPost, "/vesting-pool/acme/grant", admin, gin.H{
			"beneficiary":  newIdentity(),
			"start_time":   2000,
			"cliff_time":   2000,
			"end_time":     1000,
			"total_amount": 10,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_SCHEDULE", resp["code"])
	})

	t.Run("Preview", func(t *testing.T) {
		w, resp := a.do(t, http.MethodGet, "/vesting-pool/acme/grant/"+beneficiary+"/preview?at=1200", "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "locked", resp["phase"])
		assert.EqualValues(t, 0, resp["claimable"])

		w, resp = a.do(t, http.MethodGet, "/vesting-pool/acme/grant/"+beneficiary+"/preview?at=1750", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 750, resp["claimable"])
		assert.Equal(t, "0.00075", resp["claimable_readable"])

		w, _ = a.do(t, http.MethodGet, "/vesting-pool/acme/grant/"+beneficiary+"/preview?at=soon", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Claim Before Cliff", func(t *testing.T) {
		a.now = 1200
		w, resp := a.do(t, http.MethodPost, "/vesting-pool/acme/claim", beneficiary, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "CLAIM_NOT_AVAILABLE", resp["code"])
	})

	t.Run("Claim For Someone Else", func(t *testing.T) {
		a.now = 1600
		w, resp := a.do(t, http.MethodPost, "/vesting-pool/acme/claim", newIdentity(), gin.H{"beneficiary": beneficiary})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "NOT_BENEFICIARY", resp["code"])
	})

	t.Run("Claim", func(t *testing.T) {
		a.now = 1500
		w, resp := a.do(t, http.MethodPost, "/vesting-pool/acme/claim", beneficiary, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.EqualValues(t, 500, resp["amount"])
		assert.Equal(t, "0.0005", resp["amount_readable"])
		assert.NotEmpty(t, resp["event_id"])

		w, resp = a.do(t, http.MethodPost, "/vesting-pool/acme/claim", beneficiary, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "NO_TOKENS_TO_CLAIM", resp["code"])
	})

	t.Run("Get Pool", func(t *testing.T) {
		w, resp := a.do(t, http.MethodGet, "/vesting-pool/acme", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 500, resp["treasury_balance"])
		assert.Equal(t, "0.0005", resp["treasury_balance_readable"])

		w, resp = a.do(t, http.MethodGet, "/vesting-pool/nobody", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "POOL_NOT_FOUND", resp["code"])
	})

	t.Run("Get Grant", func(t *testing.T) {
		a.now = 2500
		w, resp := a.do(t, http.MethodGet, "/vesting-pool/acme/grant/"+beneficiary, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 500, resp["total_claimed"])
		quote, ok := resp["quote"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "vested", quote["phase"])
		assert.EqualValues(t, 500, quote["claimable"])

		w, resp = a.do(t, http.MethodGet, "/vesting-pool/acme/grant/"+newIdentity(), "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "GRANT_NOT_FOUND", resp["code"])
	})

	t.Run("Lists", func(t *testing.T) {
		w, _ := a.do(t, http.MethodGet, "/vesting-pool", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var pools []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pools))
		assert.Len(t, pools, 1)

		w, _ = a.do(t, http.MethodGet, "/vesting-pool/acme/grant", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var grants []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grants))
		assert.Len(t, grants, 1)
	})
}

func TestClaimStream(t *testing.T) {
	a := newAPI(t, middleware.AuthConfig{Disabled: true})
	admin := newIdentity()
	beneficiary := newIdentity()

	w, _ := a.do(t, http.MethodPost, "/vesting-pool", admin, gin.H{"company_name": "acme", "asset": newIdentity()})
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = a.do(t, http.MethodPost, "/vesting-pool/acme/fund", admin, gin.H{"amount": 100})
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = a.do(t, http.MethodPost, "/vesting-pool/acme/grant", admin, gin.H{
		"beneficiary": beneficiary, "start_time": 0, "cliff_time": 0, "end_time": 10, "total_amount": 100,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/claims?company=acme"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.stream.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	a.now = 10
	w, _ = a.do(t, http.MethodPost, "/vesting-pool/acme/claim", beneficiary, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev vesting.ClaimEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "acme", ev.CompanyName)
	assert.Equal(t, beneficiary, ev.Beneficiary)
	assert.Equal(t, uint64(100), ev.Amount)
	assert.Equal(t, int64(10), ev.ClaimedAt)
}

func TestSignedRequest(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newAPI(t, middleware.AuthConfig{
		MaxSkew: time.Minute,
		Now:     func() time.Time { return now },
	})
	account, err := solanautil.NewKeyManager(t.TempDir()).GenerateKeyPair()
	require.NoError(t, err)
	signer := account.PublicKey.ToBase58()

	send := func(ts int64, body []byte, sign []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/vesting-pool", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderSigner, signer)
		req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(middleware.HeaderSignature, solanautil.SignMessage(account, solanautil.RequestMessage(http.MethodPost, "/vesting-pool", ts, sign)))
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		return w
	}

	body, err := json.Marshal(gin.H{"company_name": "signed", "asset": newIdentity()})
	require.NoError(t, err)

	t.Run("Tampered body", func(t *testing.T) {
		w := send(now.Unix(), body, []byte(`{}`))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Stale timestamp", func(t *testing.T) {
		w := send(now.Add(-2*time.Minute).Unix(), body, body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid signature", func(t *testing.T) {
		w := send(now.Unix(), body, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, signer, resp["owner"])
	})
}
