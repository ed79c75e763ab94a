package realms

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// programAuthoritySeed prefixes every governance program PDA.
const programAuthoritySeed = "governance"

// ProposalAddress derives the proposal PDA for a governance, governing mint
// and proposal index.
func ProposalAddress(governance, governingTokenMint solana.PublicKey, index uint32) (solana.PublicKey, error) {
	indexBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(indexBytes, index)
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(programAuthoritySeed),
		governance.Bytes(),
		governingTokenMint.Bytes(),
		indexBytes,
	}, GovernanceProgram)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive proposal address: %w", err)
	}
	return addr, nil
}

// MintGovernanceAddress derives the mint governance PDA for a realm and a
// governed mint.
func MintGovernanceAddress(realm, governedMint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte("mint-governance"),
		realm.Bytes(),
		governedMint.Bytes(),
	}, GovernanceProgram)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive mint governance address: %w", err)
	}
	return addr, nil
}
