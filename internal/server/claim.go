package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
)

type claimCouponRequest struct {
	ProjectID     string `json:"projectId"`
	TemplateID    string `json:"templateId"`
	RequestedCode string `json:"requestedCode"`
}

type claimCouponResponse struct {
	CouponID        string `json:"couponId"`
	Code            string `json:"code"`
	PromotionCodeID string `json:"promotionCodeId"`
	Status          string `json:"status"`
}

func (s *Server) ClaimCoupon(c *gin.Context) {
	marketerID := marketerIDFromContext(c)
	if marketerID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !s.claimLimit.Allow(marketerID.String()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req claimCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil {
		AbortWithError(c, newValidationError("projectId", "invalid_project_id", "invalid projectId"))
		return
	}
	templateID, err := snowflake.ParseString(strings.TrimSpace(req.TemplateID))
	if err != nil {
		AbortWithError(c, newValidationError("templateId", "invalid_template_id", "invalid templateId"))
		return
	}

	coupon, err := s.attribution.Claim(c.Request.Context(), attributiondomain.ClaimRequest{
		ProjectID:     projectID,
		TemplateID:    templateID,
		MarketerID:    marketerID,
		RequestedCode: strings.TrimSpace(req.RequestedCode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claimCouponResponse{
		CouponID:        coupon.ID.String(),
		Code:            coupon.Code,
		PromotionCodeID: coupon.StripePromotionCodeID,
		Status:          string(coupon.Status),
	}})
}
