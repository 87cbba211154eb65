package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/require"

	"tokenvesting/internal/middleware"
	solanautil "tokenvesting/pkg/solana"
)

// BaseURL points at a running API, e.g. http://localhost:8080.
var BaseURL = os.Getenv("VESTING_API_URL")

func TestMain(m *testing.M) {
	if BaseURL != "" {
		// wait for the service to come up
		time.Sleep(5 * time.Second)
	}
	os.Exit(m.Run())
}

func requireService(t *testing.T) {
	t.Helper()
	if BaseURL == "" {
		t.Skip("VESTING_API_URL not set")
	}
}

// signedRequest sends body as JSON, signed by signer.
func signedRequest(t *testing.T, signer types.Account, method, path string, body interface{}) *http.Response {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, BaseURL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	ts := time.Now().Unix()
	sig := solanautil.SignMessage(&signer, solanautil.RequestMessage(method, path, ts, payload))
	req.Header.Set(middleware.HeaderSigner, signer.PublicKey.ToBase58())
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(middleware.HeaderSignature, sig)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
