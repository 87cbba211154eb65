package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	solanautil "tokenvesting/pkg/solana"
)

const (
	HeaderSigner    = "X-Vesting-Signer"
	HeaderTimestamp = "X-Vesting-Timestamp"
	HeaderSignature = "X-Vesting-Signature"

	callerKey = "vesting.caller"
)

// AuthConfig configures request signature verification.
type AuthConfig struct {
	MaxSkew time.Duration
	// Disabled trusts X-Vesting-Signer without a signature. Development only.
	Disabled bool
	Now      func() time.Time
}

// SignatureAuth authenticates the caller by an ed25519 signature over the request.
// The verified signer is available to handlers through CallerFrom.
func SignatureAuth(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxSkew <= 0 {
		cfg.MaxSkew = 5 * time.Minute
	}
	if cfg.Disabled {
		log.Warn("Request signature verification is disabled")
	}

	return func(c *gin.Context) {
		signer := c.GetHeader(HeaderSigner)
		if signer == "" {
			unauthorized(c, "missing "+HeaderSigner)
			return
		}
		if cfg.Disabled {
			c.Set(callerKey, signer)
			c.Next()
			return
		}

		ts, err := strconv.ParseInt(c.GetHeader(HeaderTimestamp), 10, 64)
		if err != nil {
			unauthorized(c, "invalid "+HeaderTimestamp)
			return
		}
		skew := cfg.Now().Sub(time.Unix(ts, 0))
		if skew > cfg.MaxSkew || skew < -cfg.MaxSkew {
			unauthorized(c, "request timestamp outside allowed window")
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		msg := solanautil.RequestMessage(c.Request.Method, c.Request.URL.Path, ts, body)
		if err := solanautil.VerifySignature(signer, c.GetHeader(HeaderSignature), msg); err != nil {
			log.WithFields(log.Fields{
				"signer": signer,
				"path":   c.Request.URL.Path,
			}).Warnf("Signature rejected: %v", err)
			unauthorized(c, "invalid signature")
			return
		}

		c.Set(callerKey, signer)
		c.Next()
	}
}

// CallerFrom returns the authenticated caller of the request.
func CallerFrom(c *gin.Context) (string, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return "", false
	}
	caller, ok := v.(string)
	return caller, ok && caller != ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "UNAUTHORIZED"})
}
