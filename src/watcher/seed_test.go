package watcher

import (
	"bytes"
	"context"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/solana-gov-watch/src/realms"
	"github.com/stake-plus/solana-gov-watch/src/store"
)

func (h *harness) setRealm(t *testing.T) {
	t.Helper()
	realm := realms.Realm{
		AccountType:   realms.AccountTypeRealm,
		CommunityMint: h.cfg.CommunityMint,
		Config: realms.RealmConfig{
			CommunityMintMaxVoteWeightSource: realms.MintMaxVoteWeightSource{
				Kind:  realms.MaxVoteWeightSupplyFraction,
				Value: realms.SupplyFractionBase,
			},
			CouncilMint: &h.cfg.CouncilMint,
		},
		Name: "Seed Realm",
	}
	h.ledger.set(h.cfg.RealmKey, encodeBorsh(t, &realm))
}

func (h *harness) setMint(t *testing.T, key solana.PublicKey, supply uint64, decimals uint8) {
	t.Helper()
	mint := token.Mint{Supply: supply, Decimals: decimals, IsInitialized: true}
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(&mint))
	h.ledger.set(key, buf.Bytes())
}

func (h *harness) seedProposal(t *testing.T, idx uint32, mint solana.PublicKey, yes, no uint64, votingAt time.Time) solana.PublicKey {
	t.Helper()
	key, err := realms.ProposalAddress(h.cfg.GovernanceKey, h.cfg.CommunityMint, idx)
	require.NoError(t, err)
	at := votingAt.Unix()
	proposal := realms.Proposal{
		AccountType:        realms.AccountTypeProposal,
		Governance:         h.cfg.GovernanceKey,
		GoverningTokenMint: mint,
		State:              realms.ProposalStateVoting,
		YesVotesCount:      yes,
		NoVotesCount:       no,
		DraftAt:            at - 3600,
		VotingAt:           &at,
	}
	h.ledger.set(key, encodeBorsh(t, &proposal))
	return key
}

func TestSeedPopulatesMirror(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	h.setRealm(t)
	h.setGovernance(t, 4)
	h.setMint(t, h.cfg.CommunityMint, 100, 6)

	// index 0: still voting, tracked for reminders
	active := h.seedProposal(t, 0, h.cfg.CommunityMint, 10, 5, now.Add(-time.Hour))
	// index 1: window elapsed, finalized locally from the mint supply
	stale := h.seedProposal(t, 1, h.cfg.CommunityMint, 80, 10,
		now.Add(-(testMaxVotingTime*time.Second + 2*time.Hour)))
	// index 2: window elapsed, council mint unavailable, clock-finalized
	clockOnly := h.seedProposal(t, 2, h.cfg.CouncilMint, 3, 1,
		now.Add(-(testMaxVotingTime*time.Second + 2*time.Hour)))
	// index 3 was never created on chain; the gap is skipped

	require.NoError(t, Seed(context.Background(), h.cfg, h.store, h.ledger, now))

	realm, err := h.store.GetRealm(h.cfg.RealmKey)
	require.NoError(t, err)
	assert.Equal(t, "Seed Realm", realm.Realm.Name)

	governance, err := h.store.GetGovernance(h.cfg.GovernanceKey)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), governance.Governance.ProposalsCount)

	cache, err := h.store.GetNotifCache(h.cfg.GovernanceKey)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), cache.LastProposalsCount,
		"seeding announces nothing, existing proposals count as seen")
	require.Len(t, cache.VotingProposals, 1)
	assert.Equal(t, active, cache.VotingProposals[0].ProposalKey)
	assert.Zero(t, cache.VotingProposals[0].LastNotifiedAt)

	finalized, err := h.store.GetProposal(stale)
	require.NoError(t, err)
	assert.Equal(t, realms.ProposalStateSucceeded, finalized.Proposal.State)
	require.NotNil(t, finalized.Proposal.VotingCompletedAt)
	require.NotNil(t, finalized.Proposal.MaxVoteWeight)
	assert.Equal(t, uint64(100), *finalized.Proposal.MaxVoteWeight)

	clocked, err := h.store.GetProposal(clockOnly)
	require.NoError(t, err)
	assert.Equal(t, realms.ProposalStateVoting, clocked.Proposal.State,
		"without a supply only the window close is recorded")
	require.NotNil(t, clocked.Proposal.VotingCompletedAt)
	endsAt := *clocked.Proposal.VotingAt + testMaxVotingTime
	assert.Equal(t, endsAt, *clocked.Proposal.VotingCompletedAt)

	missing, err := realms.ProposalAddress(h.cfg.GovernanceKey, h.cfg.CommunityMint, 3)
	require.NoError(t, err)
	_, err = h.store.GetProposal(missing)
	assert.ErrorIs(t, err, store.ErrNotFound)

	remaining, err := h.store.ListProposals()
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestSeedFailsWithoutRealm(t *testing.T) {
	h := newHarness(t)
	h.setGovernance(t, 0)

	err := Seed(context.Background(), h.cfg, h.store, h.ledger, time.Now())
	require.Error(t, err)
}
