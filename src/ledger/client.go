// Package ledger is the read-only RPC surface toward the chain.
package ledger

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("account not found")

// Account is a raw account: data plus owning program.
type Account struct {
	Data  []byte
	Owner solana.PublicKey
}

// KeyedAccount pairs an address with its raw data.
type KeyedAccount struct {
	Key  solana.PublicKey
	Data []byte
}

// MemcmpFilter matches accounts whose data at Offset equals Bytes.
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// Client is what the sync engine consumes. Implementations may block on the
// network; every call takes a context.
type Client interface {
	GetAccount(ctx context.Context, key solana.PublicKey) (Account, error)
	GetProgramAccountsFiltered(ctx context.Context, program solana.PublicKey, filters []MemcmpFilter) ([]KeyedAccount, error)
}

// RPC implements Client over a Solana JSON-RPC endpoint.
type RPC struct {
	client *rpc.Client
}

// New connects a client to the given RPC url.
func New(url string) *RPC {
	return &RPC{client: rpc.New(url)}
}

// GetAccount fetches a single account's raw data and owner.
func (r *RPC) GetAccount(ctx context.Context, key solana.PublicKey) (Account, error) {
	res, err := r.client.GetAccountInfo(ctx, key)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return Account{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return Account{}, fmt.Errorf("get account %s: %w", key, err)
	}
	if res == nil || res.Value == nil {
		return Account{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return Account{
		Data:  res.Value.Data.GetBinary(),
		Owner: res.Value.Owner,
	}, nil
}

// GetProgramAccountsFiltered enumerates program accounts matching every
// memcmp filter.
func (r *RPC) GetProgramAccountsFiltered(ctx context.Context, program solana.PublicKey, filters []MemcmpFilter) ([]KeyedAccount, error) {
	rpcFilters := make([]rpc.RPCFilter, 0, len(filters))
	for _, f := range filters {
		rpcFilters = append(rpcFilters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: f.Offset,
				Bytes:  solana.Base58(f.Bytes),
			},
		})
	}

	res, err := r.client.GetProgramAccountsWithOpts(ctx, program, &rpc.GetProgramAccountsOpts{
		Filters: rpcFilters,
	})
	if err != nil {
		return nil, fmt.Errorf("get program accounts for %s: %w", program, err)
	}

	out := make([]KeyedAccount, 0, len(res))
	for _, keyed := range res {
		if keyed == nil || keyed.Account == nil {
			continue
		}
		out = append(out, KeyedAccount{
			Key:  keyed.Pubkey,
			Data: keyed.Account.Data.GetBinary(),
		})
	}
	return out, nil
}

// GetMint fetches and decodes an SPL token mint; used for translating raw
// vote weights into mint-decimal UI units.
func GetMint(ctx context.Context, client Client, key solana.PublicKey) (*token.Mint, error) {
	account, err := client.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	var mint token.Mint
	if err := bin.NewBinDecoder(account.Data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("decode mint %s: %w", key, err)
	}
	return &mint, nil
}

// AmountToUIAmount converts a raw token amount into UI units.
func AmountToUIAmount(amount uint64, decimals uint8) float64 {
	if amount == 0 {
		return 0
	}
	divisor := 1.0
	for i := uint8(0); i < decimals; i++ {
		divisor *= 10
	}
	return float64(amount) / divisor
}
