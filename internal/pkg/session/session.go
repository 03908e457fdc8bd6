package session

import (
	"strings"
	"time"

	"github.com/the-flip/core/internal/models"
	jwtpkg "github.com/the-flip/core/internal/pkg/jwt"
	"gorm.io/gorm"
)

const DefaultTTL = 30 * 24 * time.Hour

// Issue creates a DB session and signs a JWT bound to that session.
func Issue(db *gorm.DB, maintainerID, ip, ua string, ttl time.Duration) (string, *models.MaintainerSession, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	s := &models.MaintainerSession{
		MaintainerID: maintainerID,
		IP:           strings.TrimSpace(ip),
		UA:           strings.TrimSpace(ua),
		ExpiresAt:    now.Add(ttl),
	}
	if err := db.Create(s).Error; err != nil {
		return "", nil, err
	}

	token, err := jwtpkg.SignWithOptions(maintainerID, ttl, jwtpkg.SignOptions{SessionID: s.ID})
	if err != nil {
		_ = db.Delete(s).Error
		return "", nil, err
	}
	return token, s, nil
}

// IsActive reports whether the session exists, is unrevoked, and unexpired.
func IsActive(db *gorm.DB, maintainerID, sessionID string) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		// Legacy token without sid.
		return true, nil
	}

	var count int64
	err := db.Model(&models.MaintainerSession{}).
		Where("id = ? AND maintainer_id = ? AND revoked_at IS NULL AND expires_at > ?", sessionID, maintainerID, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Touch bumps the session's updated_at so "last seen" ordering works.
func Touch(db *gorm.DB, maintainerID, sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}
	_ = db.Model(&models.MaintainerSession{}).
		Where("id = ? AND maintainer_id = ? AND revoked_at IS NULL AND expires_at > ?", sessionID, maintainerID, time.Now()).
		Update("updated_at", time.Now()).Error
}

// ListActive returns the maintainer's live sessions, most recent first.
func ListActive(db *gorm.DB, maintainerID string) ([]models.MaintainerSession, error) {
	var sessions []models.MaintainerSession
	err := db.Where("maintainer_id = ? AND revoked_at IS NULL AND expires_at > ?", maintainerID, time.Now()).
		Order("updated_at DESC, created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// Revoke marks one session as revoked.
func Revoke(db *gorm.DB, maintainerID, sessionID string) error {
	now := time.Now()
	res := db.Model(&models.MaintainerSession{}).
		Where("id = ? AND maintainer_id = ? AND revoked_at IS NULL", sessionID, maintainerID).
		Update("revoked_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RevokeAll revokes every live session except the one passed in.
func RevokeAll(db *gorm.DB, maintainerID, exceptSessionID string) error {
	q := db.Model(&models.MaintainerSession{}).
		Where("maintainer_id = ? AND revoked_at IS NULL", maintainerID)
	if exceptSessionID != "" {
		q = q.Where("id <> ?", exceptSessionID)
	}
	return q.Update("revoked_at", time.Now()).Error
}
