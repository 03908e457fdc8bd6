package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/the-flip/core/internal/models"
	sessionpkg "github.com/the-flip/core/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) DB() *gorm.DB { return s.db }

// Login verifies credentials and issues a session token. Failed attempts
// sleep 3s to slow credential stuffing.
func (s *Service) Login(username, password, ip, ua string) (string, error) {
	var m models.MaintainerModel
	if err := s.db.Select("id, password").
		Where("username = ?", username).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(3 * time.Second)
			return "", ErrMaintainerNotFound
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(password)); err != nil {
		time.Sleep(3 * time.Second)
		return "", ErrWrongPassword
	}

	token, _, err := sessionpkg.Issue(s.db, m.ID, ip, ua, sessionpkg.DefaultTTL)
	if err != nil {
		return "", err
	}

	now := time.Now()
	s.db.Model(&models.MaintainerModel{}).Where("id = ?", m.ID).
		Updates(map[string]interface{}{"last_login_time": now, "last_login_ip": ip})

	payload, _ := json.Marshal(map[string]string{"username": username, "ip": ip})
	s.db.Create(&models.ActivityModel{Type: "login", ActorID: m.ID, Payload: string(payload)})

	return token, nil
}

func (s *Service) GetMaintainer(id string) (*models.MaintainerModel, error) {
	var m models.MaintainerModel
	if err := s.db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaintainerNotFound
		}
		return nil, err
	}
	return &m, nil
}

// UpdateProfile lets a maintainer change their own name, mail, or password.
// Changing the password requires the current one.
func (s *Service) UpdateProfile(id string, dto *UpdateProfileDTO) (*models.MaintainerModel, error) {
	m, err := s.GetMaintainer(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Mail != nil {
		updates["mail"] = *dto.Mail
	}
	if dto.Password != nil {
		if dto.OldPassword == nil {
			return nil, ErrWrongPassword
		}
		if err := bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(*dto.OldPassword)); err != nil {
			return nil, ErrWrongPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*dto.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updates["password"] = string(hash)
	}
	if len(updates) == 0 {
		return m, nil
	}
	if err := s.db.Model(m).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetMaintainer(id)
}

func (s *Service) ListMaintainers() ([]models.MaintainerModel, error) {
	var ms []models.MaintainerModel
	return ms, s.db.Order("username ASC").Find(&ms).Error
}

func (s *Service) CreateMaintainer(dto *CreateMaintainerDTO) (*models.MaintainerModel, error) {
	var count int64
	s.db.Model(&models.MaintainerModel{}).Where("username = ?", dto.Username).Count(&count)
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := dto.Name
	if name == "" {
		name = dto.Username
	}
	m := models.MaintainerModel{
		Username:       dto.Username,
		Name:           name,
		Password:       string(hash),
		Mail:           dto.Mail,
		IsAdmin:        dto.IsAdmin,
		SharedTerminal: dto.SharedTerminal,
	}
	return &m, s.db.Create(&m).Error
}

func (s *Service) UpdateMaintainer(id string, dto *UpdateMaintainerDTO) (*models.MaintainerModel, error) {
	m, err := s.GetMaintainer(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Mail != nil {
		updates["mail"] = *dto.Mail
	}
	if dto.IsAdmin != nil {
		updates["is_admin"] = *dto.IsAdmin
	}
	if dto.SharedTerminal != nil {
		updates["shared_terminal"] = *dto.SharedTerminal
	}
	if dto.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*dto.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updates["password"] = string(hash)
	}
	if len(updates) == 0 {
		return m, nil
	}
	if err := s.db.Model(m).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetMaintainer(id)
}

// DeleteMaintainer soft-deletes the account and revokes all of its sessions.
func (s *Service) DeleteMaintainer(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.MaintainerModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMaintainerNotFound
	}
	return sessionpkg.RevokeAll(s.db, id, "")
}

func (s *Service) ListTokens(maintainerID string) ([]models.APIToken, error) {
	var tokens []models.APIToken
	return tokens, s.db.Where("maintainer_id = ? AND (expired_at IS NULL OR expired_at > ?)", maintainerID, time.Now()).
		Order("created_at DESC").Find(&tokens).Error
}

func (s *Service) CreateToken(maintainerID string, dto *CreateTokenDTO) (*models.APIToken, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	token := "flp" + hex.EncodeToString(b)

	t := models.APIToken{
		MaintainerID: maintainerID,
		Token:        token,
		Name:         dto.Name,
		ExpiredAt:    dto.ExpiredAt,
	}
	return &t, s.db.Create(&t).Error
}

func (s *Service) DeleteToken(maintainerID, tokenID string) error {
	result := s.db.Where("id = ? AND maintainer_id = ?", tokenID, maintainerID).
		Delete(&models.APIToken{})
	if result.RowsAffected == 0 {
		return fmt.Errorf("token not found")
	}
	return result.Error
}
