package realms

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	// ErrAccountEmpty is returned when an account holds no data.
	ErrAccountEmpty = errors.New("account data is empty")
	// ErrWrongOwner is returned when an account is not owned by the
	// governance program.
	ErrWrongOwner = errors.New("account not owned by governance program")
	// ErrWrongDiscriminant is returned when the account type byte does not
	// match the requested record type.
	ErrWrongDiscriminant = errors.New("unexpected account type")
)

func validateAccount(owner solana.PublicKey, data []byte) error {
	if len(data) == 0 {
		return ErrAccountEmpty
	}
	if !owner.Equals(GovernanceProgram) {
		return fmt.Errorf("%w: owner %s", ErrWrongOwner, owner)
	}
	return nil
}

// DecodeRealm decodes raw account bytes into a realm record, validating the
// owning program and the account discriminant.
func DecodeRealm(key solana.PublicKey, owner solana.PublicKey, data []byte) (*RealmWrapper, error) {
	if err := validateAccount(owner, data); err != nil {
		return nil, err
	}
	var realm Realm
	if err := bin.NewBorshDecoder(data).Decode(&realm); err != nil {
		return nil, fmt.Errorf("decode realm %s: %w", key, err)
	}
	if realm.AccountType != AccountTypeRealm {
		return nil, fmt.Errorf("%w: got %s, want Realm", ErrWrongDiscriminant, realm.AccountType)
	}
	return &RealmWrapper{Realm: realm, Key: key}, nil
}

// DecodeGovernance decodes raw account bytes into a governance record; any of
// the four governance account flavors is accepted.
func DecodeGovernance(key solana.PublicKey, owner solana.PublicKey, data []byte) (*GovernanceWrapper, error) {
	if err := validateAccount(owner, data); err != nil {
		return nil, err
	}
	var governance Governance
	if err := bin.NewBorshDecoder(data).Decode(&governance); err != nil {
		return nil, fmt.Errorf("decode governance %s: %w", key, err)
	}
	if !governance.AccountType.IsGovernance() {
		return nil, fmt.Errorf("%w: got %s, want a governance flavor", ErrWrongDiscriminant, governance.AccountType)
	}
	return &GovernanceWrapper{Governance: governance, Key: key}, nil
}

// DecodeProposal decodes raw account bytes into a proposal record.
func DecodeProposal(key solana.PublicKey, owner solana.PublicKey, data []byte) (*ProposalWrapper, error) {
	if err := validateAccount(owner, data); err != nil {
		return nil, err
	}
	var proposal Proposal
	if err := bin.NewBorshDecoder(data).Decode(&proposal); err != nil {
		return nil, fmt.Errorf("decode proposal %s: %w", key, err)
	}
	if proposal.AccountType != AccountTypeProposal {
		return nil, fmt.Errorf("%w: got %s, want Proposal", ErrWrongDiscriminant, proposal.AccountType)
	}
	return &ProposalWrapper{Proposal: proposal, Key: key}, nil
}

// DecodeVoteRecord decodes raw account bytes into a vote record.
func DecodeVoteRecord(key solana.PublicKey, owner solana.PublicKey, data []byte) (*VoteRecord, error) {
	if err := validateAccount(owner, data); err != nil {
		return nil, err
	}
	var record VoteRecord
	if err := bin.NewBorshDecoder(data).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode vote record %s: %w", key, err)
	}
	if record.AccountType != AccountTypeVoteRecord {
		return nil, fmt.Errorf("%w: got %s, want VoteRecord", ErrWrongDiscriminant, record.AccountType)
	}
	return &record, nil
}
