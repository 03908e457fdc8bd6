package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/the-flip/core/internal/config"
	jwtpkg "github.com/the-flip/core/internal/pkg/jwt"
	"go.uber.org/zap"
)

func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) error {
	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	if cfg.Paths.Media != "" {
		if err := os.MkdirAll(cfg.Paths.Media, 0o755); err != nil {
			return fmt.Errorf("create media dir %s: %w", cfg.Paths.Media, err)
		}
	}
	return nil
}
