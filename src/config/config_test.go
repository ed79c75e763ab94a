package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/solana-gov-watch/src/realms"
)

const (
	testRealmKey      = "413KSeuFUBSWDzfjU9BBqBAWYKmoR8mncrhV84WcGNAk"
	testCouncilMint   = "EzSjCzCPwpchdQVaGJZYpgDNagzasKFVGJ66Dmut26FL"
	testCommunityMint = "STuLiPmUCUtG1hQcwdc9de9sjYhVsYoucCiWqbApbpM"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Discord.BotToken = "token"
	cfg.Discord.StatusChannel = "123456789"
	cfg.RealmInfo = RealmInfo{
		RealmKey:         testRealmKey,
		CouncilMintKey:   testCouncilMint,
		CommunityMintKey: testCommunityMint,
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, uint64(600), cfg.Discord.WorkerLoopFrequency)
	assert.Equal(t, int64(6), cfg.Discord.NotificationFrequency)
	assert.Equal(t, "https://realms.today/dao", cfg.Discord.UIBaseURL)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCURL)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
discord:
  bot_token: file-token
  status_channel: "42"
  worker_loop_frequency: 30
rpc_url: https://rpc.example.org
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Discord.BotToken)
	assert.Equal(t, uint64(30), cfg.Discord.WorkerLoopFrequency)
	assert.Equal(t, "https://rpc.example.org", cfg.RPCURL)
	// untouched keys keep their defaults
	assert.Equal(t, int64(6), cfg.Discord.NotificationFrequency)
	assert.Equal(t, "gov-watch.db", cfg.DBPath)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("RPC_URL", "https://env.example.org")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
discord:
  bot_token: file-token
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.BotToken, "environment wins over the file")
	assert.Equal(t, "https://env.example.org", cfg.RPCURL)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.RealmInfo.GovernanceKey = testRealmKey // any valid key

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(yamlPath, false))
	loaded, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.RealmInfo, loaded.RealmInfo)
	assert.Equal(t, cfg.Discord, loaded.Discord)

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, cfg.Save(jsonPath, true))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"realm_key"`)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Fix())
	assert.NoError(t, cfg.Validate())

	missingToken := validConfig()
	require.NoError(t, missingToken.Fix())
	missingToken.Discord.BotToken = ""
	assert.Error(t, missingToken.Validate())

	badKey := validConfig()
	require.NoError(t, badKey.Fix())
	badKey.RealmInfo.CommunityMintKey = "not-base58!"
	assert.Error(t, badKey.Validate())
}

func TestFixDerivesGovernanceKey(t *testing.T) {
	cfg := validConfig()
	require.Empty(t, cfg.RealmInfo.GovernanceKey)
	require.NoError(t, cfg.Fix())
	require.NotEmpty(t, cfg.RealmInfo.GovernanceKey)

	expected, err := realms.MintGovernanceAddress(cfg.RealmInfo.Realm(), cfg.RealmInfo.CouncilMint())
	require.NoError(t, err)
	assert.Equal(t, expected, cfg.RealmInfo.Governance())

	// an explicit key is never overwritten
	explicit := validConfig()
	explicit.RealmInfo.GovernanceKey = testRealmKey
	require.NoError(t, explicit.Fix())
	assert.Equal(t, testRealmKey, explicit.RealmInfo.GovernanceKey)
}
