package store

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/stake-plus/solana-gov-watch/src/realms"
)

// NotifCacheEntry is the per-governance notification bookkeeping. A proposal
// appears in VotingProposals iff it is currently voting and its vote end has
// not been processed yet.
type NotifCacheEntry struct {
	GovernanceKey      solana.PublicKey
	LastProposalsCount uint32
	VotingProposals    []ProposalNotifTime
}

// ProposalNotifTime records when a voting proposal was last announced;
// zero means never.
type ProposalNotifTime struct {
	ProposalKey    solana.PublicKey
	LastNotifiedAt int64
}

// Contains reports whether the proposal is already tracked for reminders.
func (e *NotifCacheEntry) Contains(key solana.PublicKey) bool {
	for _, entry := range e.VotingProposals {
		if entry.ProposalKey.Equals(key) {
			return true
		}
	}
	return false
}

// Track adds a proposal to the reminder list if not present.
func (e *NotifCacheEntry) Track(key solana.PublicKey) {
	if e.Contains(key) {
		return
	}
	e.VotingProposals = append(e.VotingProposals, ProposalNotifTime{ProposalKey: key})
}

// Remove drops a proposal from the reminder list, preserving the order of
// the remaining entries.
func (e *NotifCacheEntry) Remove(key solana.PublicKey) {
	kept := e.VotingProposals[:0]
	for _, entry := range e.VotingProposals {
		if !entry.ProposalKey.Equals(key) {
			kept = append(kept, entry)
		}
	}
	e.VotingProposals = kept
}

// Records are stored as borsh: length-prefixed, field order preserved.

func borshEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeRealm(realm *realms.RealmWrapper) ([]byte, error) {
	return borshEncode(realm)
}

func decodeRealm(data []byte) (*realms.RealmWrapper, error) {
	var realm realms.RealmWrapper
	if err := bin.NewBorshDecoder(data).Decode(&realm); err != nil {
		return nil, fmt.Errorf("decode realm record: %w", err)
	}
	return &realm, nil
}

func encodeGovernance(governance *realms.GovernanceWrapper) ([]byte, error) {
	return borshEncode(governance)
}

func decodeGovernance(data []byte) (*realms.GovernanceWrapper, error) {
	var governance realms.GovernanceWrapper
	if err := bin.NewBorshDecoder(data).Decode(&governance); err != nil {
		return nil, fmt.Errorf("decode governance record: %w", err)
	}
	return &governance, nil
}

func encodeProposal(proposal *realms.ProposalWrapper) ([]byte, error) {
	return borshEncode(proposal)
}

func decodeProposal(data []byte) (*realms.ProposalWrapper, error) {
	var proposal realms.ProposalWrapper
	if err := bin.NewBorshDecoder(data).Decode(&proposal); err != nil {
		return nil, fmt.Errorf("decode proposal record: %w", err)
	}
	return &proposal, nil
}

func encodeNotifCache(entry *NotifCacheEntry) ([]byte, error) {
	return borshEncode(entry)
}

func decodeNotifCache(data []byte) (*NotifCacheEntry, error) {
	var entry NotifCacheEntry
	if err := bin.NewBorshDecoder(data).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode notif cache record: %w", err)
	}
	return &entry, nil
}
