// Package config loads process configuration from a yaml file with
// environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"github.com/stake-plus/solana-gov-watch/src/realms"
)

// Config is the top level configuration object.
type Config struct {
	Discord   Discord   `yaml:"discord" json:"discord"`
	RealmInfo RealmInfo `yaml:"realm_info" json:"realm_info"`
	Webserver Webserver `yaml:"webserver" json:"webserver"`
	DBPath    string    `yaml:"db_path" json:"db_path"`
	RPCURL    string    `yaml:"rpc_url" json:"rpc_url"`
	LogFile   string    `yaml:"log_file" json:"log_file"`
	DebugLog  bool      `yaml:"debug_log" json:"debug_log"`
}

// Discord holds the bot credentials and notification policy.
type Discord struct {
	BotToken string `yaml:"bot_token" json:"bot_token"`
	// StatusChannel is the channel id notifications are posted to.
	StatusChannel string `yaml:"status_channel" json:"status_channel"`
	// WorkerLoopFrequency is the poll interval in seconds.
	WorkerLoopFrequency uint64 `yaml:"worker_loop_frequency" json:"worker_loop_frequency"`
	// NotificationFrequency is the reminder interval in hours.
	NotificationFrequency int64  `yaml:"notification_frequency" json:"notification_frequency"`
	UIBaseURL             string `yaml:"ui_base_url" json:"ui_base_url"`
}

// RealmInfo identifies the watched realm; only mint based governance is
// supported.
type RealmInfo struct {
	RealmKey         string `yaml:"realm_key" json:"realm_key"`
	CouncilMintKey   string `yaml:"council_mint_key" json:"council_mint_key"`
	CommunityMintKey string `yaml:"community_mint_key" json:"community_mint_key"`
	GovernanceKey    string `yaml:"governance_key" json:"governance_key"`
}

// Webserver configures the optional read-only status endpoint.
type Webserver struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	return &Config{
		Discord: Discord{
			WorkerLoopFrequency:   600,
			NotificationFrequency: 6,
			UIBaseURL:             "https://realms.today/dao",
		},
		DBPath:  "gov-watch.db",
		RPCURL:  "https://api.mainnet-beta.solana.com",
		LogFile: "gov-watch.log",
	}
}

// Load reads the file at path and applies env overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// Save writes the configuration to path, as json when asJSON is set.
func (c *Config) Save(path string, asJSON bool) error {
	var data []byte
	var err error
	if asJSON {
		data, err = marshalJSON(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.BotToken = v
	}
	if v := os.Getenv("STATUS_CHANNEL"); v != "" {
		c.Discord.StatusChannel = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
}

// Validate checks that every required field is present and parseable.
func (c *Config) Validate() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("discord bot_token not set in config or DISCORD_TOKEN")
	}
	if c.Discord.StatusChannel == "" {
		return fmt.Errorf("discord status_channel not set in config or STATUS_CHANNEL")
	}
	for name, key := range map[string]string{
		"realm_key":          c.RealmInfo.RealmKey,
		"council_mint_key":   c.RealmInfo.CouncilMintKey,
		"community_mint_key": c.RealmInfo.CommunityMintKey,
		"governance_key":     c.RealmInfo.GovernanceKey,
	} {
		if _, err := solana.PublicKeyFromBase58(key); err != nil {
			return fmt.Errorf("realm_info %s %q: %w", name, key, err)
		}
	}
	return nil
}

// Fix derives the governance address from the realm and council mint when it
// is missing.
func (c *Config) Fix() error {
	if c.RealmInfo.GovernanceKey != "" {
		return nil
	}
	realmKey, err := solana.PublicKeyFromBase58(c.RealmInfo.RealmKey)
	if err != nil {
		return fmt.Errorf("realm_key %q: %w", c.RealmInfo.RealmKey, err)
	}
	councilMint, err := solana.PublicKeyFromBase58(c.RealmInfo.CouncilMintKey)
	if err != nil {
		return fmt.Errorf("council_mint_key %q: %w", c.RealmInfo.CouncilMintKey, err)
	}
	governanceKey, err := realms.MintGovernanceAddress(realmKey, councilMint)
	if err != nil {
		return err
	}
	c.RealmInfo.GovernanceKey = governanceKey.String()
	return nil
}

// The typed accessors assume Validate passed.

func (r RealmInfo) Realm() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(r.RealmKey)
}

func (r RealmInfo) CouncilMint() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(r.CouncilMintKey)
}

func (r RealmInfo) CommunityMint() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(r.CommunityMintKey)
}

func (r RealmInfo) Governance() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(r.GovernanceKey)
}
