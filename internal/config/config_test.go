package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(newTestViper())
	require.NoError(t, err)

	assert.True(t, cfg.Invites.Enabled)
	assert.Equal(t, 3, cfg.Invites.MaxPerThread)
	assert.True(t, cfg.Knocks.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Knocks.Timeout)
	assert.Equal(t, 4*time.Minute, cfg.OnlineStatus.Lifetime)
	assert.Equal(t, "default", cfg.Broadcasting.Driver)
	assert.Equal(t, "null", cfg.PushNotifications.Driver)
	assert.False(t, cfg.PushNotifications.RequiresBroadcasting)
	assert.False(t, cfg.Calling.Enabled)
	assert.Equal(t, 40, cfg.Collections.MessagesIndexCount)
	assert.Equal(t, 25, cfg.Collections.MessagesPageCount)

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "user", cfg.Providers[0].Alias)
	assert.Equal(t, "true", cfg.Providers[0].CanMessage)
}

func TestFromViperOverrides(t *testing.T) {
	v := newTestViper()
	v.Set("invites.max_per_thread", 0)
	v.Set("knocks.timeout", 1)
	v.Set("calling.enabled", true)
	v.Set("calling.driver", "default")
	v.Set("providers", map[string]any{
		"user":    map[string]any{"friendable": true, "can_message": "company"},
		"company": map[string]any{"model": "company", "searchable": true},
	})

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Invites.MaxPerThread)
	assert.Equal(t, time.Minute, cfg.Knocks.Timeout)
	assert.True(t, cfg.Calling.Enabled)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "company", cfg.Providers[0].Alias)
	assert.True(t, cfg.Providers[0].Searchable)
	assert.Equal(t, "user", cfg.Providers[1].Model)
	assert.Equal(t, "company", cfg.Providers[1].CanMessage)
}

func TestFromViperRejectsNegativeInviteLimit(t *testing.T) {
	v := newTestViper()
	v.Set("invites.max_per_thread", -1)

	_, err := FromViper(v)
	assert.Error(t, err)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("MESSENGER_BROADCASTING_DRIVER", "null")
	t.Setenv("MESSENGER_INVITES_ENABLED", "false")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "null", cfg.Broadcasting.Driver)
	assert.False(t, cfg.Invites.Enabled)
}
