package models

import "time"

// MaintainerModel is a staff profile. A shared-terminal account represents a
// physical kiosk several people use; rows it creates carry an explicit
// attribution name instead of a personal identity.
type MaintainerModel struct {
	Base
	Username       string     `json:"username"  gorm:"uniqueIndex;not null"`
	Name           string     `json:"name"`
	Password       string     `json:"-"         gorm:"not null"`
	Mail           string     `json:"mail"`
	IsAdmin        bool       `json:"is_admin"        gorm:"default:false"`
	SharedTerminal bool       `json:"shared_terminal" gorm:"default:false"`
	LastLoginTime  *time.Time `json:"last_login_time"`
	LastLoginIP    string     `json:"last_login_ip"`

	APITokens []APIToken `json:"api_tokens,omitempty" gorm:"foreignKey:MaintainerID"`
}

func (MaintainerModel) TableName() string { return "maintainers" }

// MaintainerSession tracks signed-in JWT sessions for device/session management.
type MaintainerSession struct {
	Base
	MaintainerID string     `json:"maintainer_id" gorm:"index;not null"`
	IP           string     `json:"ip"`
	UA           string     `json:"ua"            gorm:"type:text"`
	ExpiresAt    time.Time  `json:"expires_at"    gorm:"index;not null"`
	RevokedAt    *time.Time `json:"revoked_at"    gorm:"index"`
}

func (MaintainerSession) TableName() string { return "maintainer_sessions" }

// APIToken represents a personal bearer token for programmatic access.
type APIToken struct {
	Base
	MaintainerID string     `json:"-"          gorm:"index;not null"`
	Token        string     `json:"token"      gorm:"uniqueIndex;not null"`
	Name         string     `json:"name"`
	ExpiredAt    *time.Time `json:"expired_at"`
}

func (APIToken) TableName() string { return "api_tokens" }
