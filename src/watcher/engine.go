// Package watcher reconciles the local mirror with chain state and decides,
// once per qualifying event, when to notify.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/stake-plus/solana-gov-watch/src/ledger"
	"github.com/stake-plus/solana-gov-watch/src/notifier"
	"github.com/stake-plus/solana-gov-watch/src/realms"
	"github.com/stake-plus/solana-gov-watch/src/store"
)

// Config carries the identity of the watched governance and the notification
// policy.
type Config struct {
	RealmKey      solana.PublicKey
	GovernanceKey solana.PublicKey
	CouncilMint   solana.PublicKey
	CommunityMint solana.PublicKey
	// StatusChannel is the chat channel notifications are posted to.
	StatusChannel string
	UIBaseURL     string
	// ReminderInterval is the minimum spacing between voting stats
	// reminders for one proposal.
	ReminderInterval time.Duration
	// VoterMintDecimals translates raw vote weights into UI units.
	VoterMintDecimals uint8
	DebugLog          bool
}

// Engine runs one reconciliation cycle at a time for a single governance.
type Engine struct {
	cfg        Config
	store      *store.Store
	client     ledger.Client
	dispatcher notifier.Dispatcher
}

// NewEngine wires an engine; the store, client and dispatcher are owned by
// the caller.
func NewEngine(cfg Config, st *store.Store, client ledger.Client, dispatcher notifier.Dispatcher) *Engine {
	return &Engine{cfg: cfg, store: st, client: client, dispatcher: dispatcher}
}

// Cycle runs one full reconciliation pass: detect and announce new
// proposals, then service reminder bookkeeping. Errors abort only the cycle;
// the next tick retries.
func (e *Engine) Cycle(ctx context.Context, now time.Time) error {
	cycleID := uuid.NewString()[:8]

	cache, err := e.loadNotifCache()
	if err != nil {
		return fmt.Errorf("cycle %s: load notif cache: %w", cycleID, err)
	}

	governance, err := e.fetchGovernance(ctx)
	if err != nil {
		return fmt.Errorf("cycle %s: fetch governance: %w", cycleID, err)
	}

	e.announceNewProposals(ctx, cycleID, governance, cache)

	if err := e.store.PutGovernance(governance); err != nil {
		return fmt.Errorf("cycle %s: persist governance: %w", cycleID, err)
	}
	if err := e.store.PutNotifCache(cache); err != nil {
		return fmt.Errorf("cycle %s: persist notif cache: %w", cycleID, err)
	}
	if err := e.store.Flush(); err != nil {
		return fmt.Errorf("cycle %s: flush: %w", cycleID, err)
	}

	e.runReminders(ctx, cycleID, governance, cache, now)

	if err := e.store.PutNotifCache(cache); err != nil {
		return fmt.Errorf("cycle %s: persist notif cache: %w", cycleID, err)
	}
	if err := e.store.PutGovernance(governance); err != nil {
		return fmt.Errorf("cycle %s: persist governance: %w", cycleID, err)
	}
	if err := e.store.Flush(); err != nil {
		return fmt.Errorf("cycle %s: flush: %w", cycleID, err)
	}
	return nil
}

func (e *Engine) loadNotifCache() (*store.NotifCacheEntry, error) {
	cache, err := e.store.GetNotifCache(e.cfg.GovernanceKey)
	if errors.Is(err, store.ErrNotFound) {
		return &store.NotifCacheEntry{GovernanceKey: e.cfg.GovernanceKey}, nil
	}
	return cache, err
}

func (e *Engine) fetchGovernance(ctx context.Context) (*realms.GovernanceWrapper, error) {
	account, err := e.client.GetAccount(ctx, e.cfg.GovernanceKey)
	if err != nil {
		return nil, err
	}
	return realms.DecodeGovernance(e.cfg.GovernanceKey, account.Owner, account.Data)
}

// announceNewProposals walks proposal indices the cache has not seen yet,
// announcing and persisting each. A proposal is persisted only after its
// announcement was confirmed sent, so a failed dispatch is re-announced with
// identical content next cycle. The seen-counter advances past the highest
// contiguous run of successfully processed indices; later successes are
// deduplicated on revisit through store presence.
func (e *Engine) announceNewProposals(ctx context.Context, cycleID string, governance *realms.GovernanceWrapper, cache *store.NotifCacheEntry) {
	remoteCount := governance.Governance.ProposalsCount
	if remoteCount <= cache.LastProposalsCount {
		return
	}
	if e.cfg.DebugLog {
		log.Printf("cycle %s: %d new proposal(s) detected", cycleID, remoteCount-cache.LastProposalsCount)
	}

	failedIndex := remoteCount
	failed := false
	for idx := cache.LastProposalsCount; idx < remoteCount; idx++ {
		if err := e.processNewProposal(ctx, governance, cache, idx); err != nil {
			log.Printf("cycle %s: proposal index %d: %v", cycleID, idx, err)
			if !failed {
				failed = true
				failedIndex = idx
			}
		}
	}
	cache.LastProposalsCount = failedIndex
	if !failed {
		cache.LastProposalsCount = remoteCount
	}
}

func (e *Engine) processNewProposal(ctx context.Context, governance *realms.GovernanceWrapper, cache *store.NotifCacheEntry, idx uint32) error {
	proposalKey, err := realms.ProposalAddress(e.cfg.GovernanceKey, e.cfg.CommunityMint, idx)
	if err != nil {
		return err
	}

	// already persisted means already announced on an earlier visit
	if _, err := e.store.GetProposal(proposalKey); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	account, err := e.client.GetAccount(ctx, proposalKey)
	if err != nil {
		return fmt.Errorf("fetch proposal %s: %w", proposalKey, err)
	}
	proposal, err := realms.DecodeProposal(proposalKey, account.Owner, account.Data)
	if err != nil {
		return err
	}

	if err := e.dispatcher.PostMessage(e.cfg.StatusChannel, notifier.NewProposalMessage(e.cfg.UIBaseURL, proposal)); err != nil {
		return fmt.Errorf("announce proposal %s: %w", proposalKey, err)
	}

	// insert only after a successful notification
	if err := e.store.PutProposal(proposal); err != nil {
		return fmt.Errorf("persist proposal %s: %w", proposalKey, err)
	}
	if proposal.Proposal.State == realms.ProposalStateVoting && proposal.Proposal.VotingAt != nil {
		cache.Track(proposalKey)
	}
	return nil
}

// runReminders services the active reminder list: drops proposals whose vote
// window ended or whose state left Voting, and posts voting stats for the
// rest when the reminder interval elapsed. last-notified advances only on
// confirmed dispatch.
func (e *Engine) runReminders(ctx context.Context, cycleID string, governance *realms.GovernanceWrapper, cache *store.NotifCacheEntry, now time.Time) {
	var finished []solana.PublicKey

	for i := range cache.VotingProposals {
		entry := &cache.VotingProposals[i]

		proposal, err := e.store.GetProposal(entry.ProposalKey)
		if err != nil {
			log.Printf("cycle %s: reminder %s: %v", cycleID, entry.ProposalKey, err)
			continue
		}

		ended := proposal.HasVoteTimeEnded(&governance.Governance.Config, now)
		if ended || proposal.Proposal.State != realms.ProposalStateVoting {
			finished = append(finished, entry.ProposalKey)
			continue
		}

		lastNotified := time.Unix(entry.LastNotifiedAt, 0)
		if now.Sub(lastNotified) < e.cfg.ReminderInterval {
			continue
		}

		if err := e.sendVotingStats(ctx, governance, proposal, now); err != nil {
			log.Printf("cycle %s: voting stats %s: %v", cycleID, entry.ProposalKey, err)
			continue
		}
		entry.LastNotifiedAt = now.Unix()
	}

	for _, key := range finished {
		if e.cfg.DebugLog {
			log.Printf("cycle %s: removing finished proposal %s from reminders", cycleID, key)
		}
		cache.Remove(key)
	}
}

func (e *Engine) sendVotingStats(ctx context.Context, governance *realms.GovernanceWrapper, proposal *realms.ProposalWrapper, now time.Time) error {
	endsAt := proposal.VoteEndsAt(&governance.Governance.Config)
	if endsAt == nil {
		return fmt.Errorf("proposal %s has no voting window", proposal.Key)
	}

	approval, deny := e.tallyVoteRecords(ctx, proposal.Key)
	approvalUI := ledger.AmountToUIAmount(approval, e.cfg.VoterMintDecimals)
	denyUI := ledger.AmountToUIAmount(deny, e.cfg.VoterMintDecimals)
	hoursLeft := int64(endsAt.Sub(now).Hours())

	msg := notifier.VotingStatsMessage(e.cfg.UIBaseURL, proposal, approvalUI, denyUI, hoursLeft)
	return e.dispatcher.PostMessage(e.cfg.StatusChannel, msg)
}

// tallyVoteRecords sums approval and deny weights over the proposal's vote
// records, skipping relinquished votes. Enumeration is best effort: on
// failure the totals degrade to zero with a warning.
func (e *Engine) tallyVoteRecords(ctx context.Context, proposalKey solana.PublicKey) (approval, deny uint64) {
	records, err := e.client.GetProgramAccountsFiltered(ctx, realms.GovernanceProgram, voteRecordFilters(proposalKey))
	if err != nil {
		log.Printf("failed to fetch vote records for proposal %s: %v", proposalKey, err)
		return 0, 0
	}
	for _, keyed := range records {
		record, err := realms.DecodeVoteRecord(keyed.Key, realms.GovernanceProgram, keyed.Data)
		if err != nil {
			log.Printf("skipping vote record %s: %v", keyed.Key, err)
			continue
		}
		if record.IsRelinquished {
			continue
		}
		switch record.VoteWeight.Kind {
		case realms.VoteWeightYes:
			approval += record.VoteWeight.Amount
		case realms.VoteWeightNo:
			deny += record.VoteWeight.Amount
		}
	}
	return approval, deny
}

// voteRecordFilters matches vote record accounts belonging to one proposal:
// discriminant at offset 0, proposal address at offset 1.
func voteRecordFilters(proposalKey solana.PublicKey) []ledger.MemcmpFilter {
	return []ledger.MemcmpFilter{
		{Offset: 0, Bytes: []byte{byte(realms.AccountTypeVoteRecord)}},
		{Offset: 1, Bytes: proposalKey.Bytes()},
	}
}
