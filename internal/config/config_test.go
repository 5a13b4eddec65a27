package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("../../configs/example.yaml")
	require.NoError(t, err)

	assert.Equal(t, "lcd-gateway", cfg.App.Name)
	assert.Equal(t, "lcd480", cfg.Decoder.DefaultProtocol)
	assert.Equal(t, 5*time.Second, cfg.Decoder.StallTimeout)
	assert.True(t, cfg.UDP.Enable)
	assert.Equal(t, "lcd480", cfg.UDP.Protocol)
	assert.Equal(t, 10*time.Minute, cfg.Redis.FrameTTL)
}

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	p := writeConfig(t, "app:\n  env: test\n")
	t.Setenv("LCD_DECODER_OVERSIZEPOLICY", "reject")
	t.Setenv("LCD_TCP_ADDR", ":9000")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, "reject", cfg.Decoder.OversizePolicy)
	assert.Equal(t, ":9000", cfg.TCP.Addr)
	assert.Equal(t, 8, cfg.Decoder.NotifyBuffer)
	assert.Equal(t, time.Second, cfg.TCP.ReadTimeout)
	assert.Equal(t, "lcd.frames", cfg.NATS.SubjectPrefix)
}

func TestLoad_Invalid(t *testing.T) {
	p := writeConfig(t, "decoder:\n  oversizePolicy: explode\n")
	_, err := Load(p)
	assert.Error(t, err)

	p = writeConfig(t, "tcp:\n  enable: false\nudp:\n  enable: false\n")
	_, err = Load(p)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_AuthRequiresKeys(t *testing.T) {
	p := writeConfig(t, "http:\n  auth:\n    enabled: true\n")
	_, err := Load(p)
	assert.ErrorContains(t, err, "api key")

	p = writeConfig(t, "http:\n  auth:\n    enabled: true\n    apiKeys: [sk_test_1]\n")
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"sk_test_1"}, cfg.HTTP.Auth.APIKeys)
}
