package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/labledger/core"
)

type errorResponse struct {
	err     error
	status  int
	message string
}

// errorResponses maps domain errors to a status and a message. The first
// match wins.
var errorResponses = []errorResponse{
	{core.ErrInvalidAddress, http.StatusBadRequest, "Invalid address"},
	{core.ErrInvalidSignature, http.StatusBadRequest, "Invalid signature"},
	{core.ErrInvalidInput, http.StatusBadRequest, "Invalid request"},
	{core.ErrChallengeNotFound, http.StatusBadRequest, "Challenge not found, request a new one"},
	{core.ErrChallengeExpired, http.StatusUnauthorized, "Challenge expired, request a new one"},
	{core.ErrSignatureMismatch, http.StatusUnauthorized, "Signature does not match address"},
	{core.ErrTokenExpired, http.StatusUnauthorized, "Token expired"},
	{core.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
	{core.ErrIdentityNotFound, http.StatusNotFound, "Identity not found"},
	{core.ErrIdentityAlreadyExists, http.StatusConflict, "Identity already exists"},
	{core.ErrMatriculaAlreadyInUse, http.StatusConflict, "Matricula already in use"},
	{core.ErrIdentityRequired, http.StatusForbidden, "A registered identity is required"},
	{core.ErrSignerUnavailable, http.StatusForbidden, "No signing key for this address"},
	{core.ErrRegistryNotDeployed, http.StatusServiceUnavailable, "Contracts not deployed"},
	{core.ErrLedgerUnavailable, http.StatusServiceUnavailable, "Ledger unavailable"},
	{core.ErrTransactionReverted, http.StatusServiceUnavailable, "Transaction reverted"},
	{core.ErrWriteUnconfirmed, http.StatusGatewayTimeout, "Write sent but not yet confirmed, check before retrying"},
}

func statusFor(err error) (int, string) {
	for _, r := range errorResponses {
		if errors.Is(err, r.err) {
			return r.status, r.message
		}
	}
	return http.StatusInternalServerError, "Internal error"
}

func abortWithError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
