package notifier

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/stake-plus/solana-gov-watch/src/realms"
)

func proposalLink(uiBaseURL string, key solana.PublicKey) string {
	return fmt.Sprintf("[%s](%s/proposal/%s)", key, uiBaseURL, key)
}

// NewProposalMessage builds the announcement for a freshly detected
// proposal. Building is deterministic so a failed dispatch is retried with
// identical content.
func NewProposalMessage(uiBaseURL string, proposal *realms.ProposalWrapper) Message {
	return Message{
		Title: "New Proposal Detected",
		Fields: []Field{
			{Name: "proposal", Value: proposalLink(uiBaseURL, proposal.Key)},
			{Name: "name", Value: SanitizeText(proposal.Proposal.Name)},
			{Name: "description", Value: SanitizeText(proposal.Proposal.DescriptionLink)},
		},
	}
}

// VotingStatsMessage builds the periodic reminder for a proposal accepting
// votes. Vote counts are already in mint-decimal UI units.
func VotingStatsMessage(uiBaseURL string, proposal *realms.ProposalWrapper, approvalVotes, denyVotes float64, hoursLeft int64) Message {
	description := SanitizeText(proposal.Proposal.DescriptionLink)
	if description == "" {
		description = "no description provided"
	}
	return Message{
		Title:       "Proposal Voting Stats",
		Description: "stats for proposals accepting votes",
		Fields: []Field{
			{Name: "proposal", Value: proposalLink(uiBaseURL, proposal.Key)},
			{Name: "name", Value: SanitizeText(proposal.Proposal.Name)},
			{Name: "description", Value: description},
			{Name: "approval vote count", Value: fmt.Sprintf("%v", approvalVotes)},
			{Name: "deny vote count", Value: fmt.Sprintf("%v", denyVotes)},
			{Name: "time left", Value: fmt.Sprintf("%d hours", hoursLeft)},
		},
	}
}
