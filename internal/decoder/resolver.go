package decoder

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

// ErrNFTUnresolved is returned when the datatoken contract itself does not name an NFT:
// the call reverted, returned malformed output or the zero address.
// Any other resolution error comes from the provider and may succeed on a later attempt.
var ErrNFTUnresolved = errors.New("datatoken has no resolvable NFT")

// revertErrorCode is the JSON-RPC error code of a reverted eth_call.
const revertErrorCode = 3

// ContractCaller is the read-only call capability the resolver needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *big.Int) ([]byte, error)
}

// NFTResolver maps datatoken contracts to the NFT that owns them.
// Results are cached for the lifetime of the resolver. Not safe for concurrent use.
type NFTResolver struct {
	decoder *Decoder
	caller  ContractCaller
	chainID uint64
	cache   map[common.Address]common.Address
}

// NewNFTResolver creates a resolver for one network.
func NewNFTResolver(d *Decoder, caller ContractCaller, chainID uint64) *NFTResolver {
	return &NFTResolver{
		decoder: d,
		caller:  caller,
		chainID: chainID,
		cache:   make(map[common.Address]common.Address),
	}
}

// ResolveNFT returns the NFT address of a datatoken.
func (r *NFTResolver) ResolveNFT(ctx context.Context, datatoken common.Address) (common.Address, error) {
	if nft, ok := r.cache[datatoken]; ok {
		return nft, nil
	}

	input, err := r.decoder.datatoken.Pack(methodGetERC721Address)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack %s: %w", methodGetERC721Address, err)
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &datatoken, Data: input}, nil)
	if err != nil {
		if reverted(err) {
			return common.Address{}, fmt.Errorf("%w: %s on %s: %w", ErrNFTUnresolved, methodGetERC721Address, datatoken.Hex(), err)
		}
		return common.Address{}, fmt.Errorf("%s on %s: %w", methodGetERC721Address, datatoken.Hex(), err)
	}

	values, err := r.decoder.datatoken.Unpack(methodGetERC721Address, out)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: failed to unpack %s: %w", ErrNFTUnresolved, methodGetERC721Address, err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("%w: %s returned %d values", ErrNFTUnresolved, methodGetERC721Address, len(values))
	}

	nft, ok := values[0].(common.Address)
	if !ok || nft == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s returned no NFT for %s", ErrNFTUnresolved, methodGetERC721Address, datatoken.Hex())
	}

	r.cache[datatoken] = nft
	return nft, nil
}

// Attribute fills the NFT and DID of order events. Other events are returned unchanged.
func (r *NFTResolver) Attribute(ctx context.Context, ev indexer.CrawlEvent) (indexer.CrawlEvent, error) {
	switch e := ev.(type) {
	case indexer.OrderStarted:
		order, err := r.order(ctx, e.Order)
		e.Order = order
		return e, err
	case indexer.OrderReused:
		order, err := r.order(ctx, e.Order)
		e.Order = order
		return e, err
	case indexer.ProviderFee:
		order, err := r.order(ctx, e.Order)
		e.Order = order
		return e, err
	default:
		return ev, nil
	}
}

func (r *NFTResolver) order(ctx context.Context, o indexer.Order) (indexer.Order, error) {
	nft, err := r.ResolveNFT(ctx, o.Datatoken)
	if err != nil {
		return o, err
	}
	o.NFT = nft
	o.DID = indexer.ComputeDID(nft, r.chainID)
	return o, nil
}

func reverted(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
