package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
	webhookdomain "github.com/TD-Producoes/revshare-sub001/internal/webhook/domain"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Message }

var (
	ErrUnauthorized = &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "unauthorized"}
	ErrNotFound     = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "not found"}
	ErrRateLimited  = &apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
)

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Field: field, Message: message}
}

// AbortWithError maps domain errors onto HTTP statuses. Unknown errors
// become opaque 500s so internals never leak to callers.
func AbortWithError(c *gin.Context, err error) {
	var known *apiError
	if errors.As(err, &known) {
		c.AbortWithStatusJSON(known.Status, gin.H{"error": known})
		return
	}

	switch {
	case errors.Is(err, webhookdomain.ErrInvalidSignature),
		errors.Is(err, webhookdomain.ErrUnresolvableProject),
		errors.Is(err, webhookdomain.ErrInvalidPayload):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, webhookdomain.ErrNoSecretConfigured):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	case errors.Is(err, attributiondomain.ErrProjectNotFound),
		errors.Is(err, attributiondomain.ErrTemplateNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, attributiondomain.ErrTemplateInactive),
		errors.Is(err, attributiondomain.ErrTemplateNotStarted),
		errors.Is(err, attributiondomain.ErrTemplateExpired),
		errors.Is(err, attributiondomain.ErrMarketerNotAllowed),
		errors.Is(err, attributiondomain.ErrContractNotApproved),
		errors.Is(err, attributiondomain.ErrInvalidCode):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, purchasedomain.ErrInvalidEvent),
		errors.Is(err, purchasedomain.ErrInvalidAmount),
		errors.Is(err, purchasedomain.ErrInvalidCurrency),
		errors.Is(err, purchasedomain.ErrInvalidProject):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		// Includes reconciliation failures on not-yet-recorded purchases:
		// Stripe retries on 5xx, which is exactly what an out-of-order
		// refund delivery needs.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
