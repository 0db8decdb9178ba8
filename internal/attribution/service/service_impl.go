package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/cache"
	"github.com/TD-Producoes/revshare-sub001/internal/clock"
	"github.com/TD-Producoes/revshare-sub001/internal/events"
	"github.com/TD-Producoes/revshare-sub001/internal/money"
)

const readModelTTL = 30 * time.Second

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,30}[A-Z0-9]$`)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Gateway domain.PromotionCodeGateway
	Outbox  *events.Outbox
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	gateway domain.PromotionCodeGateway
	outbox  *events.Outbox

	coupons   cache.Cache[string, *domain.Coupon]
	contracts cache.Cache[string, *domain.Contract]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("attribution.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		gateway:   p.Gateway,
		outbox:    p.Outbox,
		coupons:   cache.NewTTLCache[string, *domain.Coupon](),
		contracts: cache.NewTTLCache[string, *domain.Contract](),
	}
}

func (s *Service) Resolve(ctx context.Context, promotionCodeID string, projectID snowflake.ID) (domain.Attribution, error) {
	promotionCodeID = strings.TrimSpace(promotionCodeID)
	if promotionCodeID == "" || projectID == 0 {
		return domain.Unattributed(), nil
	}

	coupon, err := s.loadCoupon(ctx, promotionCodeID)
	if err != nil {
		return domain.Unattributed(), err
	}
	if coupon == nil || coupon.Status != domain.CouponStatusActive {
		return domain.Unattributed(), nil
	}
	if coupon.ProjectID != projectID {
		// A code from a different project applied its discount but earns
		// nothing here.
		s.log.Warn("promotion code project mismatch",
			zap.String("promotion_code_id", promotionCodeID),
			zap.String("coupon_project_id", coupon.ProjectID.String()),
			zap.String("event_project_id", projectID.String()),
		)
		return domain.Unattributed(), nil
	}

	contract, err := s.loadContract(ctx, projectID, coupon.MarketerID)
	if err != nil {
		return domain.Unattributed(), err
	}
	if contract == nil || contract.Status != domain.ContractStatusApproved {
		// Contract paused or rejected after the coupon went out: the
		// purchase stays unattributed even though a coupon was used.
		return domain.Unattributed(), nil
	}

	couponID := coupon.ID
	marketerID := coupon.MarketerID
	return domain.Attribution{
		Attributed:        true,
		CouponID:          &couponID,
		MarketerID:        &marketerID,
		CommissionPercent: money.NormalizePercent(contract.CommissionPercent),
		RefundWindowDays:  contract.RefundWindowDays,
	}, nil
}

func (s *Service) ResolveProjectByAccount(ctx context.Context, stripeAccountID string) (*domain.Project, error) {
	return s.repo.FindProjectByStripeAccount(ctx, s.db, stripeAccountID)
}

func (s *Service) ResolveProjectByPromotionCode(ctx context.Context, promotionCodeID string) (*domain.Project, error) {
	coupon, err := s.loadCoupon(ctx, promotionCodeID)
	if err != nil || coupon == nil {
		return nil, err
	}
	return s.repo.FindProject(ctx, s.db, coupon.ProjectID)
}

func (s *Service) GetProject(ctx context.Context, id snowflake.ID) (*domain.Project, error) {
	return s.repo.FindProject(ctx, s.db, id)
}

func (s *Service) Claim(ctx context.Context, req domain.ClaimRequest) (*domain.Coupon, error) {
	if req.ProjectID == 0 || req.TemplateID == 0 || req.MarketerID == 0 {
		return nil, domain.ErrTemplateNotFound
	}

	project, err := s.repo.FindProject(ctx, s.db, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}

	template, err := s.repo.FindTemplate(ctx, s.db, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if template == nil || template.ProjectID != req.ProjectID {
		return nil, domain.ErrTemplateNotFound
	}
	if err := s.checkTemplate(template, req.MarketerID); err != nil {
		return nil, err
	}

	contract, err := s.repo.FindContract(ctx, s.db, req.ProjectID, req.MarketerID)
	if err != nil {
		return nil, err
	}
	if contract == nil || contract.Status != domain.ContractStatusApproved {
		return nil, domain.ErrContractNotApproved
	}

	if existing, err := s.repo.FindCouponForClaim(ctx, s.db, req.ProjectID, req.TemplateID, req.MarketerID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	code := strings.ToUpper(strings.TrimSpace(req.RequestedCode))
	if code == "" {
		code = s.generateCode()
	}
	if !codePattern.MatchString(code) {
		return nil, domain.ErrInvalidCode
	}

	var accountID string
	if project.StripeAccountID != nil {
		accountID = *project.StripeAccountID
	}
	created, err := s.gateway.CreatePromotionCode(ctx, domain.PromotionCodeRequest{
		Code:            code,
		PercentOff:      money.NormalizePercent(template.PercentOff),
		StripeAccountID: accountID,
	})
	if err != nil {
		return nil, err
	}

	coupon := &domain.Coupon{
		ID:                    s.genID.Generate(),
		ProjectID:             req.ProjectID,
		MarketerID:            req.MarketerID,
		TemplateID:            req.TemplateID,
		Code:                  code,
		StripeCouponID:        created.CouponID,
		StripePromotionCodeID: created.PromotionCodeID,
		Status:                domain.CouponStatusActive,
		CreatedAt:             s.clock.Now(),
	}
	inserted, err := s.repo.InsertCoupon(ctx, s.db, coupon)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// A racing claim won; hand back whichever coupon landed.
		existing, err := s.repo.FindCouponForClaim(ctx, s.db, req.ProjectID, req.TemplateID, req.MarketerID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	if err := s.outbox.Publish(ctx, events.Event{
		ProjectID: req.ProjectID,
		Type:      events.EventCouponClaimed,
		Payload: map[string]any{
			"coupon_id":   coupon.ID.String(),
			"marketer_id": req.MarketerID.String(),
			"template_id": req.TemplateID.String(),
			"code":        code,
		},
		DedupeKey: fmt.Sprintf("coupon_claimed:%s", coupon.ID),
	}); err != nil {
		s.log.Warn("coupon claim event not recorded", zap.Error(err))
	}

	return coupon, nil
}

func (s *Service) checkTemplate(template *domain.CouponTemplate, marketerID snowflake.ID) error {
	if template.Status != domain.TemplateStatusActive {
		return domain.ErrTemplateInactive
	}
	now := s.clock.Now()
	if template.StartAt != nil && now.Before(*template.StartAt) {
		return domain.ErrTemplateNotStarted
	}
	if template.EndAt != nil && now.After(*template.EndAt) {
		return domain.ErrTemplateExpired
	}
	if len(template.AllowedMarketerIDs) > 0 {
		allowed := false
		for _, id := range template.AllowedMarketerIDs {
			if id == marketerID {
				allowed = true
				break
			}
		}
		if !allowed {
			return domain.ErrMarketerNotAllowed
		}
	}
	return nil
}

func (s *Service) generateCode() string {
	return fmt.Sprintf("REV-%s", strings.ToUpper(s.genID.Generate().Base36()))
}

func (s *Service) loadCoupon(ctx context.Context, promotionCodeID string) (*domain.Coupon, error) {
	if cached, ok := s.coupons.Get(promotionCodeID); ok {
		return cached, nil
	}
	coupon, err := s.repo.FindCouponByPromotionCode(ctx, s.db, promotionCodeID)
	if err != nil {
		return nil, err
	}
	if coupon != nil {
		s.coupons.Set(promotionCodeID, coupon, readModelTTL)
	}
	return coupon, nil
}

func (s *Service) loadContract(ctx context.Context, projectID, marketerID snowflake.ID) (*domain.Contract, error) {
	key := projectID.String() + ":" + marketerID.String()
	if cached, ok := s.contracts.Get(key); ok {
		return cached, nil
	}
	contract, err := s.repo.FindContract(ctx, s.db, projectID, marketerID)
	if err != nil {
		return nil, err
	}
	if contract != nil {
		s.contracts.Set(key, contract, readModelTTL)
	}
	return contract, nil
}
