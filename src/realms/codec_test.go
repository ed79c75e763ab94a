package realms

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func borshBytes(t *testing.T, v interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bin.NewBorshEncoder(&buf).Encode(v))
	return buf.Bytes()
}

func TestDecodeRejectsEmptyAndForeignAccounts(t *testing.T) {
	key := solana.NewWallet().PublicKey()

	_, err := DecodeProposal(key, GovernanceProgram, nil)
	assert.ErrorIs(t, err, ErrAccountEmpty)

	foreign := solana.NewWallet().PublicKey()
	_, err = DecodeProposal(key, foreign, []byte{byte(AccountTypeProposal)})
	assert.ErrorIs(t, err, ErrWrongOwner)
}

func TestDecodeRealm(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	council := solana.NewWallet().PublicKey()
	realm := Realm{
		AccountType:   AccountTypeRealm,
		CommunityMint: solana.NewWallet().PublicKey(),
		Config: RealmConfig{
			MinCommunityTokensToCreateGovernance: 1_000_000,
			CommunityMintMaxVoteWeightSource: MintMaxVoteWeightSource{
				Kind:  MaxVoteWeightSupplyFraction,
				Value: SupplyFractionBase,
			},
			CouncilMint: &council,
		},
		Name: "Pyth Governance",
	}

	decoded, err := DecodeRealm(key, GovernanceProgram, borshBytes(t, &realm))
	require.NoError(t, err)
	assert.Equal(t, key, decoded.Key)
	assert.Equal(t, realm.CommunityMint, decoded.Realm.CommunityMint)
	assert.Equal(t, "Pyth Governance", decoded.Realm.Name)
	require.NotNil(t, decoded.Realm.Config.CouncilMint)
	assert.Equal(t, council, *decoded.Realm.Config.CouncilMint)
}

func TestDecodeRealmWrongDiscriminant(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	realm := Realm{AccountType: AccountTypeProposal}
	_, err := DecodeRealm(key, GovernanceProgram, borshBytes(t, &realm))
	assert.ErrorIs(t, err, ErrWrongDiscriminant)
}

func TestDecodeGovernanceAcceptsAllFlavors(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	for _, flavor := range []AccountType{
		AccountTypeAccountGovernance, AccountTypeProgramGovernance,
		AccountTypeMintGovernance, AccountTypeTokenGovernance,
	} {
		governance := Governance{
			AccountType:     flavor,
			Realm:           solana.NewWallet().PublicKey(),
			GovernedAccount: solana.NewWallet().PublicKey(),
			ProposalsCount:  12,
			Config: GovernanceConfig{
				VoteThresholdPercentage: yesThreshold(60),
				MaxVotingTime:           259200,
			},
		}
		decoded, err := DecodeGovernance(key, GovernanceProgram, borshBytes(t, &governance))
		require.NoError(t, err, flavor.String())
		assert.Equal(t, uint32(12), decoded.Governance.ProposalsCount)
		assert.Equal(t, uint8(60), decoded.Governance.Config.VoteThresholdPercentage.Percentage)
	}

	realm := Realm{AccountType: AccountTypeRealm}
	_, err := DecodeGovernance(key, GovernanceProgram, borshBytes(t, &realm))
	assert.ErrorIs(t, err, ErrWrongDiscriminant)
}

func TestDecodeProposal(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	votingAt := int64(1700000000)
	slot := uint64(212345678)
	proposal := Proposal{
		AccountType:        AccountTypeProposal,
		Governance:         solana.NewWallet().PublicKey(),
		GoverningTokenMint: solana.NewWallet().PublicKey(),
		State:              ProposalStateVoting,
		TokenOwnerRecord:   solana.NewWallet().PublicKey(),
		YesVotesCount:      42,
		NoVotesCount:       7,
		DraftAt:            votingAt - 3600,
		VotingAt:           &votingAt,
		VotingAtSlot:       &slot,
		Name:               "Upgrade the program",
		DescriptionLink:    "https://forum.example.org/t/upgrade",
	}

	decoded, err := DecodeProposal(key, GovernanceProgram, borshBytes(t, &proposal))
	require.NoError(t, err)
	assert.Equal(t, ProposalStateVoting, decoded.Proposal.State)
	assert.Equal(t, uint64(42), decoded.Proposal.YesVotesCount)
	require.NotNil(t, decoded.Proposal.VotingAt)
	assert.Equal(t, votingAt, *decoded.Proposal.VotingAt)
	assert.Nil(t, decoded.Proposal.VotingCompletedAt)
	assert.Nil(t, decoded.Proposal.MaxVoteWeight)
	assert.Equal(t, "Upgrade the program", decoded.Proposal.Name)
}

func TestDecodeProposalTruncatedData(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	proposal := Proposal{AccountType: AccountTypeProposal, Name: "truncated"}
	data := borshBytes(t, &proposal)
	_, err := DecodeProposal(key, GovernanceProgram, data[:len(data)/2])
	assert.Error(t, err)
}

func TestDecodeVoteRecord(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	record := VoteRecord{
		AccountType:         AccountTypeVoteRecord,
		Proposal:            solana.NewWallet().PublicKey(),
		GoverningTokenOwner: solana.NewWallet().PublicKey(),
		VoteWeight:          VoteWeight{Kind: VoteWeightNo, Amount: 99},
	}

	decoded, err := DecodeVoteRecord(key, GovernanceProgram, borshBytes(t, &record))
	require.NoError(t, err)
	assert.Equal(t, VoteWeightNo, decoded.VoteWeight.Kind)
	assert.Equal(t, uint64(99), decoded.VoteWeight.Amount)
	assert.False(t, decoded.IsRelinquished)
}

func TestProposalAddressDeterministic(t *testing.T) {
	governance := mustKey(t, "EzSjCzCPwpchdQVaGJZYpgDNagzasKFVGJ66Dmut26FL")
	mint := mustKey(t, "STuLiPmUCUtG1hQcwdc9de9sjYhVsYoucCiWqbApbpM")

	first, err := ProposalAddress(governance, mint, 0)
	require.NoError(t, err)
	again, err := ProposalAddress(governance, mint, 0)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	second, err := ProposalAddress(governance, mint, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestMintGovernanceAddressDeterministic(t *testing.T) {
	realm := mustKey(t, "413KSeuFUBSWDzfjU9BBqBAWYKmoR8mncrhV84WcGNAk")
	mint := mustKey(t, "STuLiPmUCUtG1hQcwdc9de9sjYhVsYoucCiWqbApbpM")

	first, err := MintGovernanceAddress(realm, mint)
	require.NoError(t, err)
	again, err := MintGovernanceAddress(realm, mint)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.False(t, first.IsZero())
}
