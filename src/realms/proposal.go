package realms

import (
	"errors"
	"fmt"
	"math/bits"
	"time"
)

var (
	// ErrInvalidStateTransition is returned when a lifecycle operation is
	// attempted from a state that does not allow it.
	ErrInvalidStateTransition = errors.New("invalid proposal state transition")
	// ErrUnsupportedVoteWeightSource is returned for absolute max vote
	// weight sources, which the program does not support.
	ErrUnsupportedVoteWeightSource = errors.New("unsupported max vote weight source")
	// ErrUnsupportedThresholdType is returned for quorum thresholds.
	ErrUnsupportedThresholdType = errors.New("unsupported vote threshold type")
)

// YesVoteThresholdCount converts a yes-vote threshold percentage into an
// absolute vote count, rounding up so results never round in favor of
// passing. The multiplication runs in 128 bits, same as on chain.
func YesVoteThresholdCount(threshold VoteThresholdPercentage, maxVoteWeight uint64) (uint64, error) {
	if threshold.Kind != VoteThresholdYesVote {
		return 0, ErrUnsupportedThresholdType
	}
	if threshold.Percentage > 100 {
		return 0, fmt.Errorf("threshold percentage %d out of range", threshold.Percentage)
	}
	hi, lo := bits.Mul64(uint64(threshold.Percentage), maxVoteWeight)
	count, rem := bits.Div64(hi, lo, 100)
	if rem > 0 {
		count++
	}
	return count, nil
}

// GetMaxVoteWeight computes the maximum vote weight for a proposal. Council
// mint proposals use the full council supply; community proposals use a
// configured fraction of the community supply, never allowed below the votes
// already cast.
func (p *Proposal) GetMaxVoteWeight(realm *Realm, governingTokenMintSupply uint64) (uint64, error) {
	if realm.Config.CouncilMint != nil && p.GoverningTokenMint.Equals(*realm.Config.CouncilMint) {
		return governingTokenMintSupply, nil
	}
	source := realm.Config.CommunityMintMaxVoteWeightSource
	if source.Kind != MaxVoteWeightSupplyFraction {
		return 0, ErrUnsupportedVoteWeightSource
	}
	if source.Value >= SupplyFractionBase {
		return governingTokenMintSupply, nil
	}
	hi, lo := bits.Mul64(governingTokenMintSupply, source.Value)
	maxWeight, _ := bits.Div64(hi, lo, SupplyFractionBase)
	if total := p.YesVotesCount + p.NoVotesCount; total > maxWeight {
		return total, nil
	}
	return maxWeight, nil
}

// TryGetTippedVoteState checks whether the tally resolves the vote before
// the voting window elapses. The returned bool reports whether a tip
// happened.
func (p *Proposal) TryGetTippedVoteState(maxVoteWeight uint64, config *GovernanceConfig) (ProposalState, bool, error) {
	if p.YesVotesCount == maxVoteWeight {
		return ProposalStateSucceeded, true, nil
	}
	if p.NoVotesCount == maxVoteWeight {
		return ProposalStateDefeated, true, nil
	}

	thresholdCount, err := YesVoteThresholdCount(config.VoteThresholdPercentage, maxVoteWeight)
	if err != nil {
		return p.State, false, err
	}

	// yes side has met the threshold and the no side can no longer catch up
	if p.YesVotesCount >= thresholdCount && p.YesVotesCount > (maxVoteWeight-p.YesVotesCount) {
		return ProposalStateSucceeded, true, nil
	}
	// no side has made the threshold unreachable, or holds a majority
	if p.NoVotesCount > (maxVoteWeight-thresholdCount) || p.NoVotesCount >= (maxVoteWeight-p.NoVotesCount) {
		return ProposalStateDefeated, true, nil
	}
	return p.State, false, nil
}

// TryTipVote applies early tipping if the tally allows it. Returns true when
// the proposal state changed.
func (p *Proposal) TryTipVote(realm *Realm, config *GovernanceConfig, governingTokenMintSupply uint64, now time.Time) (bool, error) {
	if p.State != ProposalStateVoting {
		return false, fmt.Errorf("%w: cannot tip vote from %s", ErrInvalidStateTransition, p.State)
	}
	maxVoteWeight, err := p.GetMaxVoteWeight(realm, governingTokenMintSupply)
	if err != nil {
		return false, err
	}
	tipped, ok, err := p.TryGetTippedVoteState(maxVoteWeight, config)
	if err != nil || !ok {
		return false, err
	}
	p.State = tipped
	completedAt := now.Unix()
	p.VotingCompletedAt = &completedAt
	p.MaxVoteWeight = &maxVoteWeight
	threshold := config.VoteThresholdPercentage
	p.VoteThresholdPercentage = &threshold
	return true, nil
}

// AssertCanFinalizeVote checks that the proposal is voting and its window
// has fully elapsed.
func (p *Proposal) AssertCanFinalizeVote(config *GovernanceConfig, now time.Time) error {
	if p.State != ProposalStateVoting {
		return fmt.Errorf("%w: cannot finalize vote from %s", ErrInvalidStateTransition, p.State)
	}
	if p.VotingAt == nil {
		return fmt.Errorf("%w: proposal never entered voting", ErrInvalidStateTransition)
	}
	if *p.VotingAt+int64(config.MaxVotingTime) >= now.Unix() {
		return fmt.Errorf("%w: voting still in progress", ErrInvalidStateTransition)
	}
	return nil
}

// FinalizeVote forces the final state once the voting window elapsed with no
// earlier tip. An exact tie resolves Defeated. Nothing is mutated on error.
func (p *Proposal) FinalizeVote(realm *Realm, config *GovernanceConfig, governingTokenMintSupply uint64, now time.Time) error {
	if err := p.AssertCanFinalizeVote(config, now); err != nil {
		return err
	}
	maxVoteWeight, err := p.GetMaxVoteWeight(realm, governingTokenMintSupply)
	if err != nil {
		return err
	}
	thresholdCount, err := YesVoteThresholdCount(config.VoteThresholdPercentage, maxVoteWeight)
	if err != nil {
		return err
	}

	// +1 vote over the no side is required to succeed; a tie is Defeated
	if p.YesVotesCount >= thresholdCount && p.YesVotesCount > p.NoVotesCount {
		p.State = ProposalStateSucceeded
	} else {
		p.State = ProposalStateDefeated
	}
	completedAt := now.Unix()
	p.VotingCompletedAt = &completedAt
	p.MaxVoteWeight = &maxVoteWeight
	threshold := config.VoteThresholdPercentage
	p.VoteThresholdPercentage = &threshold
	return nil
}

// AssertCanCancel checks that the proposal may still be cancelled.
func (p *Proposal) AssertCanCancel() error {
	switch p.State {
	case ProposalStateDraft, ProposalStateSigningOff, ProposalStateVoting:
		return nil
	}
	return fmt.Errorf("%w: cannot cancel from %s", ErrInvalidStateTransition, p.State)
}

// AssertCanSignOff checks that signatories may still sign off.
func (p *Proposal) AssertCanSignOff() error {
	switch p.State {
	case ProposalStateDraft, ProposalStateSigningOff:
		return nil
	}
	return fmt.Errorf("%w: cannot sign off from %s", ErrInvalidStateTransition, p.State)
}

// HasVoteTimeEnded reports whether the voting window has elapsed at now.
func (p *ProposalWrapper) HasVoteTimeEnded(config *GovernanceConfig, now time.Time) bool {
	endsAt := p.VoteEndsAt(config)
	if endsAt == nil {
		return false
	}
	return now.After(*endsAt)
}

// VoteEndsAt returns when the voting window closes, or nil if voting never
// started.
func (p *ProposalWrapper) VoteEndsAt(config *GovernanceConfig) *time.Time {
	if p.Proposal.VotingAt == nil {
		return nil
	}
	endsAt := time.Unix(*p.Proposal.VotingAt, 0).UTC().
		Add(time.Duration(config.MaxVotingTime) * time.Second)
	return &endsAt
}

// ClockFinalize marks the proposal's voting window as completed without
// re-deriving the outcome, setting voting_completed_at to the window end.
// Used when seeding the mirror for proposals whose finalization never
// happened on chain.
func (p *ProposalWrapper) ClockFinalize(config *GovernanceConfig, now time.Time) {
	if err := p.Proposal.AssertCanFinalizeVote(config, now); err != nil {
		return
	}
	endsAt := p.VoteEndsAt(config)
	if endsAt == nil {
		return
	}
	completedAt := endsAt.Unix()
	p.Proposal.VotingCompletedAt = &completedAt
}
