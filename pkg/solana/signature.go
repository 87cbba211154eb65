package solana

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
)

var ErrInvalidSignature = errors.New("invalid signature")

// RequestMessage builds the bytes a caller signs to authenticate an API request:
// METHOD \n PATH \n TIMESTAMP \n hex(sha256(body)).
func RequestMessage(method, path string, timestamp int64, body []byte) []byte {
	digest := sha256.Sum256(body)
	return []byte(strings.Join([]string{
		strings.ToUpper(method),
		path,
		strconv.FormatInt(timestamp, 10),
		hex.EncodeToString(digest[:]),
	}, "\n"))
}

// VerifySignature checks a base58 ed25519 signature by signer over message.
func VerifySignature(signer, signature string, message []byte) error {
	pubkey, err := solana.PublicKeyFromBase58(signer)
	if err != nil {
		return fmt.Errorf("invalid signer: %w", err)
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !sig.Verify(pubkey, message) {
		return ErrInvalidSignature
	}
	return nil
}

// SignMessage signs message with account and returns the base58 signature.
func SignMessage(account *types.Account, message []byte) string {
	return solana.SignatureFromBytes(account.Sign(message)).String()
}
