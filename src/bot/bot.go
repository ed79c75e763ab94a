// Package bot owns the Discord session lifecycle and spawns the watcher.
package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/stake-plus/solana-gov-watch/src/config"
	"github.com/stake-plus/solana-gov-watch/src/ledger"
	"github.com/stake-plus/solana-gov-watch/src/notifier"
	"github.com/stake-plus/solana-gov-watch/src/store"
	"github.com/stake-plus/solana-gov-watch/src/watcher"
)

// Bot ties the Discord session to the watcher loop. The worker is spawned
// exactly once per process, structurally, from the first gateway ready
// event.
type Bot struct {
	session *discordgo.Session
	store   *store.Store
	client  ledger.Client
	cfg     *config.Config

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New builds the bot; Start opens the gateway connection.
func New(cfg *config.Config, st *store.Store, client ledger.Client) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Discord.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		session: dg,
		store:   st,
		client:  client,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}

	dg.AddHandler(b.handleReady)
	dg.AddHandler(b.handleResume)
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuilds

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	return b.session.Open()
}

// Stop cancels every worker, waits for them to drain, then closes the
// session.
func (b *Bot) Stop() {
	b.cancel()
	b.wg.Wait()
	if err := b.session.Close(); err != nil {
		log.Printf("close discord session: %v", err)
	}
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("connected as %s", event.User.Username)
	b.startWorker()
}

func (b *Bot) handleResume(s *discordgo.Session, event *discordgo.Resumed) {
	log.Printf("gateway session resumed")
	b.startWorker()
}

func (b *Bot) startWorker() {
	b.startOnce.Do(func() {
		log.Println("starting background task")

		// the voter mint decimals are needed to display vote counts in
		// UI units rather than raw weights
		mint, err := ledger.GetMint(b.ctx, b.client, b.cfg.RealmInfo.CommunityMint())
		if err != nil {
			log.Printf("failed to load community mint, worker not started: %v", err)
			return
		}

		engineCfg := watcher.Config{
			RealmKey:          b.cfg.RealmInfo.Realm(),
			GovernanceKey:     b.cfg.RealmInfo.Governance(),
			CouncilMint:       b.cfg.RealmInfo.CouncilMint(),
			CommunityMint:     b.cfg.RealmInfo.CommunityMint(),
			StatusChannel:     b.cfg.Discord.StatusChannel,
			UIBaseURL:         b.cfg.Discord.UIBaseURL,
			ReminderInterval:  time.Duration(b.cfg.Discord.NotificationFrequency) * time.Hour,
			VoterMintDecimals: mint.Decimals,
			DebugLog:          b.cfg.DebugLog,
		}

		engine := watcher.NewEngine(engineCfg, b.store, b.client, notifier.NewDiscord(b.session))
		worker := watcher.NewWorker(engine, time.Duration(b.cfg.Discord.WorkerLoopFrequency)*time.Second)

		if b.cfg.DebugLog {
			if _, err := b.session.ChannelMessageSend(b.cfg.Discord.StatusChannel, "listening for new proposals"); err != nil {
				log.Printf("failed to send startup message: %v", err)
			}
		}

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			worker.Run(b.ctx)
		}()
	})
}
