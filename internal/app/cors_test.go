package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/the-flip/core/internal/config"
)

func TestMatchOriginPattern(t *testing.T) {
	tests := []struct {
		pattern string
		host    string
		want    bool
	}{
		{"flip.example.org", "flip.example.org", true},
		{"flip.example.org", "evil.example.org", false},
		{"*.example.org", "kiosk.example.org", true},
		{"*.example.org", "deep.kiosk.example.org", true},
		{"*.example.org", "example.com", false},
		{"localhost:*", "localhost:5173", true},
		{"localhost:*", "localhost:3000", true},
		{"localhost:*", "notlocalhost:3000", false},
		{"localhost", "localhost:3000", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, matchOriginPattern(tt.pattern, tt.host))
		})
	}
}

func TestExtractOriginHost(t *testing.T) {
	assert.Equal(t, "flip.example.org", extractOriginHost("https://flip.example.org"))
	assert.Equal(t, "localhost:5173", extractOriginHost("http://localhost:5173"))
	assert.Equal(t, "bare-host", extractOriginHost("bare-host"))
}

func TestBuildCORSConfig(t *testing.T) {
	dev := &config.AppConfig{Env: "development", AllowedOrigins: []string{"flip.example.org"}}
	devCfg := buildCORSConfig(dev)
	assert.True(t, devCfg.AllowOriginFunc("https://anywhere.test"))

	prod := &config.AppConfig{Env: "production", AllowedOrigins: []string{"flip.example.org", "localhost:*"}}
	prodCfg := buildCORSConfig(prod)
	assert.True(t, prodCfg.AllowOriginFunc("https://flip.example.org"))
	assert.True(t, prodCfg.AllowOriginFunc("http://localhost:8044"))
	assert.False(t, prodCfg.AllowOriginFunc("https://evil.test"))

	assert.Contains(t, prodCfg.AllowHeaders, "X-Idempotence")
	assert.True(t, prodCfg.AllowCredentials)
}
