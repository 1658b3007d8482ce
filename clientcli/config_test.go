package clientcli_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayli-app/dayli/clientcli"
)

func TestConfigFile_Profiles(t *testing.T) {
	cfg := &clientcli.ConfigFile{}

	_, err := cfg.GetProfile("")
	assert.ErrorIs(t, err, clientcli.ErrNoProfiles)

	require.NoError(t, cfg.AddProfile(clientcli.Profile{Name: "home", Endpoint: "http://localhost:5810", Token: "tok_a", UserID: "u1"}))
	require.NoError(t, cfg.AddProfile(clientcli.Profile{Name: "prod", Endpoint: "https://dayli.example.com", Token: "tok_b", UserID: "u1", Default: true}))

	err = cfg.AddProfile(clientcli.Profile{Name: "home"})
	assert.ErrorIs(t, err, clientcli.ErrProfileExists)

	p, err := cfg.GetProfile("home")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5810", p.Endpoint)

	p, err = cfg.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "prod", p.Name, "profile marked default wins")

	require.NoError(t, cfg.SetDefault("home"))
	p, err = cfg.GetDefaultProfile()
	require.NoError(t, err)
	assert.Equal(t, "home", p.Name)

	assert.Equal(t, []string{"home", "prod"}, cfg.ProfileNames())

	require.NoError(t, cfg.RemoveProfile("prod"))
	assert.ErrorIs(t, cfg.RemoveProfile("prod"), clientcli.ErrProfileNotFound)
	assert.ErrorIs(t, cfg.UpdateProfile(clientcli.Profile{Name: "prod"}), clientcli.ErrProfileNotFound)
}

func TestConfigFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := &clientcli.ConfigFile{Profiles: []clientcli.Profile{
		{Name: "home", Endpoint: "http://localhost:5810", Token: "tok_a", UserID: "u1", Default: true},
	}}
	require.NoError(t, cfg.Save(path))

	loaded, err := clientcli.LoadConfigFile(path)
	require.NoError(t, err)
	require.Len(t, loaded.Profiles, 1)
	assert.Equal(t, cfg.Profiles[0], loaded.Profiles[0])
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := clientcli.LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMergeConfig(t *testing.T) {
	merged := clientcli.MergeConfig(
		&clientcli.Config{Endpoint: "http://file.example", Token: "tok_file", UserID: "u1"},
		nil,
		&clientcli.Config{Token: "tok_env"},
		&clientcli.Config{Endpoint: "http://flag.example"},
	)

	assert.Equal(t, "http://flag.example", merged.Endpoint)
	assert.Equal(t, "tok_env", merged.Token)
	assert.Equal(t, "u1", merged.UserID, "empty values do not override")
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := (&clientcli.Config{}).WithDefaults()
	assert.Equal(t, clientcli.DefaultEndpoint, cfg.Endpoint)

	cfg = (&clientcli.Config{Endpoint: "http://other"}).WithDefaults()
	assert.Equal(t, "http://other", cfg.Endpoint)
}

func TestConfig_ValidateWithAuth(t *testing.T) {
	assert.ErrorIs(t, (&clientcli.Config{}).ValidateWithAuth(), clientcli.ErrTokenRequired)
	assert.ErrorIs(t, (&clientcli.Config{Token: "tok"}).ValidateWithAuth(), clientcli.ErrUserIDRequired)
	assert.NoError(t, (&clientcli.Config{Token: "tok", UserID: "u1"}).ValidateWithAuth())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DAYLI_ENDPOINT", "http://env.example")
	t.Setenv("DAYLI_TOKEN", "tok_env")
	t.Setenv("DAYLI_USER_ID", "u9")
	t.Setenv("DAYLI_PROFILE", "work")

	cfg := clientcli.ConfigFromEnv()
	assert.Equal(t, "http://env.example", cfg.Endpoint)
	assert.Equal(t, "tok_env", cfg.Token)
	assert.Equal(t, "u9", cfg.UserID)
	assert.Equal(t, "work", clientcli.ProfileFromEnv())
}
