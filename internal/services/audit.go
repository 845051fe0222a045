package services

import (
	"context"
	"log/slog"
	"time"

	"control-acceso/internal/models"

	"gorm.io/gorm"
)

const defaultAuditLimit = 100

// AuditService reads the local audit trail written on login, logout and
// every dashboard write.
type AuditService struct {
	db    *gorm.DB
	limit int
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db, limit: defaultAuditLimit}
}

// Recent returns the newest entries first. The token is unused; the trail is
// local to this front-end.
func (s *AuditService) Recent(ctx context.Context, _ string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(s.limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Prune removes entries older than the retention window.
func (s *AuditService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", time.Now().Add(-retention)).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}

// Sweep prunes the trail once per interval until ctx is done. A zero
// retention keeps every entry.
func (s *AuditService) Sweep(ctx context.Context, every, retention time.Duration, logger *slog.Logger) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Prune(ctx, retention)
			if err != nil {
				logger.Warn("audit sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("pruned audit entries", "count", n)
			}
		}
	}
}
