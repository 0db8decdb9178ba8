package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	apikeydomain "github.com/TD-Producoes/revshare-sub001/internal/apikey/domain"
	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
)

const (
	demoProjectName   = "Demo Project"
	demoTemplateOff   = 20.0
	demoCommissionPct = 0.20

	// demoMarketerKey is the raw API key seeded for local development.
	// Never enable seeding in production.
	demoMarketerKey = "dev_marketer_key"
)

// EnsureDemoProject seeds a project, an active coupon template, an
// approved contract and a marketer API key so a fresh database can
// serve claims and webhooks immediately.
func EnsureDemoProject(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := ensureProjectTx(ctx, tx, node)
		if err != nil {
			return err
		}
		if err := ensureTemplateTx(ctx, tx, node, project.ID); err != nil {
			return err
		}
		marketerID, err := ensureMarketerKeyTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureContractTx(ctx, tx, node, project.ID, marketerID)
	})
}

func ensureProjectTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (attributiondomain.Project, error) {
	var project attributiondomain.Project
	err := tx.WithContext(ctx).Where("name = ?", demoProjectName).First(&project).Error
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return project, err
	}

	now := time.Now().UTC()
	project = attributiondomain.Project{
		ID:        node.Generate(),
		OwnerID:   node.Generate(),
		Name:      demoProjectName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&project).Error; err != nil {
		return project, err
	}
	return project, nil
}

func ensureTemplateTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, projectID snowflake.ID) error {
	var template attributiondomain.CouponTemplate
	err := tx.WithContext(ctx).Where("project_id = ?", projectID).First(&template).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	template = attributiondomain.CouponTemplate{
		ID:         node.Generate(),
		ProjectID:  projectID,
		Status:     attributiondomain.TemplateStatusActive,
		PercentOff: demoTemplateOff,
		CreatedAt:  time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&template).Error
}

func ensureMarketerKeyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (snowflake.ID, error) {
	hash := apikeydomain.HashAPIKey(demoMarketerKey)

	var key apikeydomain.APIKey
	err := tx.WithContext(ctx).Where("key_hash = ?", hash).First(&key).Error
	if err == nil {
		return key.UserID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	key = apikeydomain.APIKey{
		ID:        node.Generate(),
		UserID:    node.Generate(),
		Name:      "demo marketer",
		KeyHash:   hash,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&key).Error; err != nil {
		return 0, err
	}
	return key.UserID, nil
}

func ensureContractTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, projectID, marketerID snowflake.ID) error {
	var contract attributiondomain.Contract
	err := tx.WithContext(ctx).
		Where("project_id = ? AND marketer_id = ?", projectID, marketerID).
		First(&contract).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	contract = attributiondomain.Contract{
		ID:                node.Generate(),
		ProjectID:         projectID,
		MarketerID:        marketerID,
		Status:            attributiondomain.ContractStatusApproved,
		CommissionPercent: demoCommissionPct,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return tx.WithContext(ctx).Create(&contract).Error
}
