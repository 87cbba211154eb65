package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tokenvesting/internal/vesting"
)

var codeStatus = map[vesting.Code]int{
	vesting.CodeDuplicatePool:        http.StatusConflict,
	vesting.CodeDuplicateGrant:       http.StatusConflict,
	vesting.CodeNotPoolOwner:         http.StatusForbidden,
	vesting.CodeNotBeneficiary:       http.StatusForbidden,
	vesting.CodeClaimNotAvailable:    http.StatusUnprocessableEntity,
	vesting.CodeInvalidVestingPeriod: http.StatusUnprocessableEntity,
	vesting.CodeOverflow:             http.StatusUnprocessableEntity,
	vesting.CodeNoTokensToClaim:      http.StatusUnprocessableEntity,
	vesting.CodePoolNotFound:         http.StatusNotFound,
	vesting.CodeGrantNotFound:        http.StatusNotFound,
	vesting.CodePoolMismatch:         http.StatusConflict,
	vesting.CodeInvalidSchedule:      http.StatusBadRequest,
	vesting.CodeInvalidAmount:        http.StatusBadRequest,
	vesting.CodeInvalidCompanyName:   http.StatusBadRequest,
	vesting.CodeCompanyNameTooLong:   http.StatusBadRequest,
	vesting.CodeInvalidIdentity:      http.StatusBadRequest,
	vesting.CodeInsufficientFunds:    http.StatusConflict,
	vesting.CodeUnauthorizedTransfer: http.StatusInternalServerError,
	vesting.CodeConflict:             http.StatusConflict,
}

// StatusOf maps a vesting error code to its HTTP status.
func StatusOf(code vesting.Code) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	code := vesting.CodeOf(err)
	status := StatusOf(code)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path": c.Request.URL.Path,
			"code": code,
		}).Errorf("Request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "INVALID_REQUEST"})
}
