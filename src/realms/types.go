package realms

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// GovernanceProgram is the deployed spl-governance program id.
var GovernanceProgram = solana.MustPublicKeyFromBase58("GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw")

// AccountType is the discriminant stored in the first byte of every
// governance program account.
type AccountType uint8

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeRealm
	AccountTypeTokenOwnerRecord
	AccountTypeAccountGovernance
	AccountTypeProgramGovernance
	AccountTypeProposal
	AccountTypeSignatoryRecord
	AccountTypeVoteRecord
	AccountTypeProposalInstruction
	AccountTypeMintGovernance
	AccountTypeTokenGovernance
)

func (t AccountType) String() string {
	switch t {
	case AccountTypeUninitialized:
		return "Uninitialized"
	case AccountTypeRealm:
		return "Realm"
	case AccountTypeTokenOwnerRecord:
		return "TokenOwnerRecord"
	case AccountTypeAccountGovernance:
		return "AccountGovernance"
	case AccountTypeProgramGovernance:
		return "ProgramGovernance"
	case AccountTypeProposal:
		return "Proposal"
	case AccountTypeSignatoryRecord:
		return "SignatoryRecord"
	case AccountTypeVoteRecord:
		return "VoteRecord"
	case AccountTypeProposalInstruction:
		return "ProposalInstruction"
	case AccountTypeMintGovernance:
		return "MintGovernance"
	case AccountTypeTokenGovernance:
		return "TokenGovernance"
	}
	return fmt.Sprintf("AccountType(%d)", uint8(t))
}

// IsGovernance reports whether the discriminant names one of the four
// governance account flavors.
func (t AccountType) IsGovernance() bool {
	switch t {
	case AccountTypeAccountGovernance, AccountTypeProgramGovernance,
		AccountTypeMintGovernance, AccountTypeTokenGovernance:
		return true
	}
	return false
}

// ProposalState tracks the proposal lifecycle.
type ProposalState uint8

const (
	ProposalStateDraft ProposalState = iota
	ProposalStateSigningOff
	ProposalStateVoting
	ProposalStateSucceeded
	ProposalStateExecuting
	ProposalStateCompleted
	ProposalStateCancelled
	ProposalStateDefeated
	ProposalStateExecutingWithErrors
)

func (s ProposalState) String() string {
	switch s {
	case ProposalStateDraft:
		return "Draft"
	case ProposalStateSigningOff:
		return "SigningOff"
	case ProposalStateVoting:
		return "Voting"
	case ProposalStateSucceeded:
		return "Succeeded"
	case ProposalStateExecuting:
		return "Executing"
	case ProposalStateCompleted:
		return "Completed"
	case ProposalStateCancelled:
		return "Cancelled"
	case ProposalStateDefeated:
		return "Defeated"
	case ProposalStateExecutingWithErrors:
		return "ExecutingWithErrors"
	}
	return fmt.Sprintf("ProposalState(%d)", uint8(s))
}

// IsTerminal reports whether the state ends the proposal for notification
// purposes.
func (s ProposalState) IsTerminal() bool {
	switch s {
	case ProposalStateCompleted, ProposalStateCancelled,
		ProposalStateDefeated, ProposalStateExecutingWithErrors:
		return true
	}
	return false
}

// MaxVoteWeightKind selects how the community max vote weight is derived.
type MaxVoteWeightKind uint8

const (
	MaxVoteWeightSupplyFraction MaxVoteWeightKind = iota
	MaxVoteWeightAbsolute
)

// SupplyFractionBase is the denominator for supply-fraction max vote weight;
// a fraction equal to the base means the full supply counts.
const SupplyFractionBase uint64 = 10_000_000_000

// MintMaxVoteWeightSource is a borsh enum carrying a u64 payload.
type MintMaxVoteWeightSource struct {
	Kind  MaxVoteWeightKind
	Value uint64
}

func (s *MintMaxVoteWeightSource) UnmarshalWithDecoder(dec *bin.Decoder) error {
	kind, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	if kind > uint8(MaxVoteWeightAbsolute) {
		return fmt.Errorf("invalid max vote weight source %d", kind)
	}
	value, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	s.Kind = MaxVoteWeightKind(kind)
	s.Value = value
	return nil
}

func (s MintMaxVoteWeightSource) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(s.Kind)); err != nil {
		return err
	}
	return enc.WriteUint64(s.Value, bin.LE)
}

// VoteThresholdKind selects the threshold flavor.
type VoteThresholdKind uint8

const (
	VoteThresholdYesVote VoteThresholdKind = iota
	VoteThresholdQuorum
)

// VoteThresholdPercentage is a borsh enum carrying a u8 percentage payload.
type VoteThresholdPercentage struct {
	Kind       VoteThresholdKind
	Percentage uint8
}

func (v *VoteThresholdPercentage) UnmarshalWithDecoder(dec *bin.Decoder) error {
	kind, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	if kind > uint8(VoteThresholdQuorum) {
		return fmt.Errorf("invalid vote threshold type %d", kind)
	}
	pct, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	v.Kind = VoteThresholdKind(kind)
	v.Percentage = pct
	return nil
}

func (v VoteThresholdPercentage) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(v.Kind)); err != nil {
		return err
	}
	return enc.WriteUint8(v.Percentage)
}

// VoteWeightKind is the side a vote record was cast on.
type VoteWeightKind uint8

const (
	VoteWeightYes VoteWeightKind = iota
	VoteWeightNo
)

// VoteWeight is a borsh enum carrying the vote amount.
type VoteWeight struct {
	Kind   VoteWeightKind
	Amount uint64
}

func (v *VoteWeight) UnmarshalWithDecoder(dec *bin.Decoder) error {
	kind, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	if kind > uint8(VoteWeightNo) {
		return fmt.Errorf("invalid vote weight type %d", kind)
	}
	amount, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	v.Kind = VoteWeightKind(kind)
	v.Amount = amount
	return nil
}

func (v VoteWeight) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(v.Kind)); err != nil {
		return err
	}
	return enc.WriteUint64(v.Amount, bin.LE)
}

// RealmConfig holds the voting rules shared by every governance under a realm.
type RealmConfig struct {
	UseCommunityVoterWeightAddin bool
	Reserved                     [7]uint8
	MinCommunityTokensToCreateGovernance uint64
	CommunityMintMaxVoteWeightSource     MintMaxVoteWeightSource
	CouncilMint                          *solana.PublicKey `bin:"optional"`
}

// Realm mirrors the on-chain realm account layout.
type Realm struct {
	AccountType   AccountType
	CommunityMint solana.PublicKey
	Config        RealmConfig
	Reserved      [8]uint8
	Authority     *solana.PublicKey `bin:"optional"`
	Name          string
}

// GovernanceConfig holds the voting rules of a single governance.
type GovernanceConfig struct {
	VoteThresholdPercentage              VoteThresholdPercentage
	MinCommunityTokensToCreateProposal   uint64
	MinInstructionHoldUpTime             uint32
	MaxVotingTime                        uint32
	VoteWeightSource                     uint8
	ProposalCoolOffTime                  uint32
	MinCouncilTokensToCreateProposal     uint64
}

// Governance mirrors the on-chain governance account layout.
type Governance struct {
	AccountType     AccountType
	Realm           solana.PublicKey
	GovernedAccount solana.PublicKey
	ProposalsCount  uint32
	Config          GovernanceConfig
	Reserved        [8]uint8
}

// Proposal mirrors the on-chain proposal account layout.
type Proposal struct {
	AccountType               AccountType
	Governance                solana.PublicKey
	GoverningTokenMint        solana.PublicKey
	State                     ProposalState
	TokenOwnerRecord          solana.PublicKey
	SignatoriesCount          uint8
	SignatoriesSignedOffCount uint8
	YesVotesCount             uint64
	NoVotesCount              uint64
	InstructionsExecutedCount uint16
	InstructionsCount         uint16
	InstructionsNextIndex     uint16
	DraftAt                   int64
	SigningOffAt              *int64  `bin:"optional"`
	VotingAt                  *int64  `bin:"optional"`
	VotingAtSlot              *uint64 `bin:"optional"`
	VotingCompletedAt         *int64  `bin:"optional"`
	ExecutingAt               *int64  `bin:"optional"`
	ClosedAt                  *int64  `bin:"optional"`
	ExecutionFlags            uint8
	MaxVoteWeight             *uint64                  `bin:"optional"`
	VoteThresholdPercentage   *VoteThresholdPercentage `bin:"optional"`
	Name                      string
	DescriptionLink           string
}

// VoteRecord mirrors the on-chain vote record account layout.
type VoteRecord struct {
	AccountType         AccountType
	Proposal            solana.PublicKey
	GoverningTokenOwner solana.PublicKey
	IsRelinquished      bool
	VoteWeight          VoteWeight
}

// Wrappers pair decoded account data with the account address; they are what
// the store persists.

type RealmWrapper struct {
	Realm Realm
	Key   solana.PublicKey
}

type GovernanceWrapper struct {
	Governance Governance
	Key        solana.PublicKey
}

type ProposalWrapper struct {
	Proposal Proposal
	Key      solana.PublicKey
}
