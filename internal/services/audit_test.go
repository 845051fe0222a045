package services

import (
	"context"
	"testing"
	"time"

	"control-acceso/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_RecentNewestFirst(t *testing.T) {
	setupTestDB(t)
	now := time.Now()
	for i, action := range []string{"login", "create", "logout"} {
		require.NoError(t, models.DB.Create(&models.AuditLog{
			Actor:     "Ana",
			Action:    action,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	svc := NewAuditService(models.DB)
	svc.limit = 2
	logs, err := svc.Recent(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "logout", logs[0].Action)
	assert.Equal(t, "create", logs[1].Action)
}

func TestAuditService_Prune(t *testing.T) {
	setupTestDB(t)
	require.NoError(t, models.DB.Create(&models.AuditLog{Action: "login", CreatedAt: time.Now().Add(-48 * time.Hour)}).Error)
	require.NoError(t, models.DB.Create(&models.AuditLog{Action: "logout", CreatedAt: time.Now()}).Error)

	svc := NewAuditService(models.DB)
	n, err := svc.Prune(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	logs, err := svc.Recent(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "logout", logs[0].Action)
}
