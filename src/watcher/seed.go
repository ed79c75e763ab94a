package watcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/stake-plus/solana-gov-watch/src/ledger"
	"github.com/stake-plus/solana-gov-watch/src/realms"
	"github.com/stake-plus/solana-gov-watch/src/store"
)

// Seed performs the initial full population of the mirror: realm,
// governance, every existing proposal and the notification bookkeeping.
// Stale Voting proposals whose window already elapsed are finalized locally,
// since finalization is not always performed on chain.
func Seed(ctx context.Context, cfg Config, st *store.Store, client ledger.Client, now time.Time) error {
	realmAccount, err := client.GetAccount(ctx, cfg.RealmKey)
	if err != nil {
		return fmt.Errorf("fetch realm: %w", err)
	}
	realm, err := realms.DecodeRealm(cfg.RealmKey, realmAccount.Owner, realmAccount.Data)
	if err != nil {
		return fmt.Errorf("decode realm: %w", err)
	}
	if err := st.PutRealm(realm); err != nil {
		return fmt.Errorf("persist realm: %w", err)
	}

	govAccount, err := client.GetAccount(ctx, cfg.GovernanceKey)
	if err != nil {
		return fmt.Errorf("fetch governance: %w", err)
	}
	governance, err := realms.DecodeGovernance(cfg.GovernanceKey, govAccount.Owner, govAccount.Data)
	if err != nil {
		return fmt.Errorf("decode governance: %w", err)
	}
	if err := st.PutGovernance(governance); err != nil {
		return fmt.Errorf("persist governance: %w", err)
	}

	cache := &store.NotifCacheEntry{
		GovernanceKey:      cfg.GovernanceKey,
		LastProposalsCount: governance.Governance.ProposalsCount,
	}

	supplies := make(map[solana.PublicKey]uint64)

	for idx := uint32(0); idx < governance.Governance.ProposalsCount; idx++ {
		proposalKey, err := realms.ProposalAddress(cfg.GovernanceKey, cfg.CommunityMint, idx)
		if err != nil {
			return err
		}
		account, err := client.GetAccount(ctx, proposalKey)
		if err != nil {
			log.Printf("seed: skipping proposal index %d (%s): %v", idx, proposalKey, err)
			continue
		}
		proposal, err := realms.DecodeProposal(proposalKey, account.Owner, account.Data)
		if err != nil {
			log.Printf("seed: skipping proposal index %d (%s): %v", idx, proposalKey, err)
			continue
		}

		finalizeStale(ctx, client, supplies, realm, governance, proposal, now)

		if proposal.Proposal.VotingAt != nil && !proposal.HasVoteTimeEnded(&governance.Governance.Config, now) {
			cache.Track(proposalKey)
		}
		if err := st.PutProposal(proposal); err != nil {
			return fmt.Errorf("persist proposal %s: %w", proposalKey, err)
		}
	}

	if err := st.PutNotifCache(cache); err != nil {
		return fmt.Errorf("persist notif cache: %w", err)
	}
	return st.Flush()
}

// finalizeStale applies forced finalization to a stored snapshot whose vote
// window elapsed without an on-chain tip. When the governing mint supply is
// unavailable only the voting window close is recorded.
func finalizeStale(ctx context.Context, client ledger.Client, supplies map[solana.PublicKey]uint64, realm *realms.RealmWrapper, governance *realms.GovernanceWrapper, proposal *realms.ProposalWrapper, now time.Time) {
	if proposal.Proposal.AssertCanFinalizeVote(&governance.Governance.Config, now) != nil {
		return
	}

	mintKey := proposal.Proposal.GoverningTokenMint
	supply, ok := supplies[mintKey]
	if !ok {
		mint, err := ledger.GetMint(ctx, client, mintKey)
		if err != nil {
			log.Printf("seed: mint %s unavailable, clock-finalizing %s: %v", mintKey, proposal.Key, err)
			proposal.ClockFinalize(&governance.Governance.Config, now)
			return
		}
		supply = mint.Supply
		supplies[mintKey] = supply
	}

	if err := proposal.Proposal.FinalizeVote(&realm.Realm, &governance.Governance.Config, supply, now); err != nil {
		log.Printf("seed: finalize %s: %v", proposal.Key, err)
	}
}
