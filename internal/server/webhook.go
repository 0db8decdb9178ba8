package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	obscontext "github.com/TD-Producoes/revshare-sub001/internal/observability/context"
)

// HandleStripeWebhook receives raw Stripe deliveries. The body must stay
// byte-exact for signature verification, so no binding middleware runs
// on this route.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	result, err := s.webhookSvc.Handle(c.Request.Context(), payload, signature)
	if err != nil {
		s.log.Warn("webhook delivery failed",
			zap.String("request_id", obscontext.RequestIDFromGin(c)),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	s.log.Info("webhook delivery handled",
		zap.String("request_id", obscontext.RequestIDFromGin(c)),
		zap.String("event_id", result.EventID),
		zap.String("event_type", result.EventType),
		zap.String("outcome", string(result.Outcome)),
	)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
