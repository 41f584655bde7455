// Package decodertest builds ABI encoded contract logs for tests.
package decodertest

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	MetadataCreatedTopic = crypto.Keccak256Hash([]byte("MetadataCreated(address,uint8,string,bytes,bytes,bytes32,uint256,uint256)"))
	MetadataUpdatedTopic = crypto.Keccak256Hash([]byte("MetadataUpdated(address,uint8,string,bytes,bytes,bytes32,uint256,uint256)"))
	MetadataStateTopic   = crypto.Keccak256Hash([]byte("MetadataState(address,uint8,uint256,uint256)"))
	OrderStartedTopic    = crypto.Keccak256Hash([]byte("OrderStarted(address,address,uint256,uint256,uint256,address,uint256)"))
	OrderReusedTopic     = crypto.Keccak256Hash([]byte("OrderReused(bytes32,address,uint256,uint256)"))
	ProviderFeeTopic     = crypto.Keccak256Hash([]byte("ProviderFee(address,address,uint256,bytes,uint8,bytes32,bytes32,uint256)"))
)

// Location places a log in the chain.
type Location struct {
	Contract common.Address
	Block    uint64
	TxHash   common.Hash
	Index    uint
}

func (l Location) log(topics []common.Hash, data []byte) types.Log {
	return types.Log{
		Address:     l.Contract,
		Topics:      topics,
		Data:        data,
		BlockNumber: l.Block,
		TxHash:      l.TxHash,
		Index:       l.Index,
	}
}

func mustType(t testing.TB, name string) abi.Type {
	t.Helper()
	typ, err := abi.NewType(name, "", nil)
	require.NoError(t, err)
	return typ
}

func pack(t testing.TB, typeNames []string, values ...any) []byte {
	t.Helper()
	args := make(abi.Arguments, len(typeNames))
	for i, name := range typeNames {
		args[i] = abi.Argument{Type: mustType(t, name)}
	}
	data, err := args.Pack(values...)
	require.NoError(t, err)
	return data
}

// MetadataCreated builds a MetadataCreated log emitted by the NFT at loc.Contract.
func MetadataCreated(t testing.TB, loc Location, publisher common.Address, flags byte, payload []byte) types.Log {
	t.Helper()
	return metadataLog(t, MetadataCreatedTopic, loc, publisher, flags, payload)
}

// MetadataUpdated builds a MetadataUpdated log emitted by the NFT at loc.Contract.
func MetadataUpdated(t testing.TB, loc Location, updater common.Address, flags byte, payload []byte) types.Log {
	t.Helper()
	return metadataLog(t, MetadataUpdatedTopic, loc, updater, flags, payload)
}

func metadataLog(t testing.TB, topic common.Hash, loc Location, by common.Address, flags byte, payload []byte) types.Log {
	t.Helper()
	data := pack(t,
		[]string{"uint8", "string", "bytes", "bytes", "bytes32", "uint256", "uint256"},
		uint8(0), "https://provider.example", []byte{flags}, payload,
		crypto.Keccak256Hash(payload), big.NewInt(1700000000), new(big.Int).SetUint64(loc.Block),
	)
	return loc.log([]common.Hash{topic, common.BytesToHash(by.Bytes())}, data)
}

// MetadataState builds a MetadataState log.
func MetadataState(t testing.TB, loc Location, by common.Address, state uint8) types.Log {
	t.Helper()
	data := pack(t, []string{"uint8", "uint256", "uint256"},
		state, big.NewInt(1700000100), new(big.Int).SetUint64(loc.Block))
	return loc.log([]common.Hash{MetadataStateTopic, common.BytesToHash(by.Bytes())}, data)
}

// OrderStarted builds an OrderStarted log emitted by the datatoken at loc.Contract.
func OrderStarted(t testing.TB, loc Location, consumer, payer common.Address, amount *big.Int, serviceIndex int64) types.Log {
	t.Helper()
	market := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	data := pack(t, []string{"address", "uint256", "uint256", "uint256", "uint256"},
		payer, amount, big.NewInt(serviceIndex), big.NewInt(1700000200), new(big.Int).SetUint64(loc.Block))
	return loc.log([]common.Hash{
		OrderStartedTopic,
		common.BytesToHash(consumer.Bytes()),
		common.BytesToHash(market.Bytes()),
	}, data)
}

// OrderReused builds an OrderReused log.
func OrderReused(t testing.TB, loc Location, startTx common.Hash, caller common.Address) types.Log {
	t.Helper()
	data := pack(t, []string{"bytes32", "address", "uint256", "uint256"},
		[32]byte(startTx), caller, big.NewInt(1700000300), new(big.Int).SetUint64(loc.Block))
	return loc.log([]common.Hash{OrderReusedTopic}, data)
}

// ProviderFee builds a ProviderFee log.
func ProviderFee(t testing.TB, loc Location, feeAddr, feeToken common.Address, amount *big.Int) types.Log {
	t.Helper()
	data := pack(t, []string{"uint256", "bytes", "uint8", "bytes32", "bytes32", "uint256"},
		amount, []byte(`{"environment":"c2d"}`), uint8(27), [32]byte{1}, [32]byte{2}, big.NewInt(1800000000))
	return loc.log([]common.Hash{
		ProviderFeeTopic,
		common.BytesToHash(feeAddr.Bytes()),
		common.BytesToHash(feeToken.Bytes()),
	}, data)
}

// GetERC721AddressResult ABI encodes the return value of getERC721Address.
func GetERC721AddressResult(t testing.TB, nft common.Address) []byte {
	t.Helper()
	return pack(t, []string{"address"}, nft)
}
