package decoder

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/DDOIndexor/internal/decoder/decodertest"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	nftAddr       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	datatokenAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	publisher     = common.HexToAddress("0x3333333333333333333333333333333333333333")
	consumer      = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func loc(contract common.Address, block uint64, index uint) decodertest.Location {
	return decodertest.Location{
		Contract: contract,
		Block:    block,
		TxHash:   common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(index))),
		Index:    index,
	}
}

func TestDecoder_Topics(t *testing.T) {
	d := MustNew()

	topics := d.Topics()
	require.ElementsMatch(t, []common.Hash{
		decodertest.MetadataCreatedTopic,
		decodertest.MetadataUpdatedTopic,
		decodertest.MetadataStateTopic,
		decodertest.OrderStartedTopic,
		decodertest.OrderReusedTopic,
		decodertest.ProviderFeeTopic,
	}, topics)

	topic, ok := d.EventTopic("OrderReused")
	require.True(t, ok)
	require.Equal(t, decodertest.OrderReusedTopic, topic)
}

func TestDecoder_MetadataEvents(t *testing.T) {
	d := MustNew()
	did := indexer.ComputeDID(nftAddr, 137)
	payload := []byte(`{"id":"` + did + `","version":"4.1.0"}`)

	t.Run("created", func(t *testing.T) {
		lg := decodertest.MetadataCreated(t, loc(nftAddr, 1010, 3), publisher, 0, payload)

		ev, err := d.Decode(137, lg)
		require.NoError(t, err)

		created, ok := ev.(indexer.MetadataCreated)
		require.True(t, ok)
		require.Equal(t, indexer.KindMetadataCreated, created.Kind())
		require.Equal(t, did, created.Subject())
		require.Equal(t, nftAddr, created.NFT)
		require.Equal(t, publisher, created.Publisher)
		require.Equal(t, payload, created.Data)
		require.Equal(t, "https://provider.example", created.DecryptorURL)
		require.Equal(t, uint64(1010), created.Meta().BlockNumber)
		require.Equal(t, uint(3), created.Meta().LogIndex)
		require.Equal(t, uint64(137), created.Meta().ChainID)
		require.False(t, created.Compressed())
	})

	t.Run("updated with encrypted payload", func(t *testing.T) {
		lg := decodertest.MetadataUpdated(t, loc(nftAddr, 1020, 0), consumer, indexer.FlagEncrypted, []byte{0xde, 0xad})

		ev, err := d.Decode(137, lg)
		require.NoError(t, err)

		updated, ok := ev.(indexer.MetadataUpdated)
		require.True(t, ok)
		require.Equal(t, consumer, updated.Publisher)
		require.True(t, updated.Encrypted())
	})

	t.Run("state", func(t *testing.T) {
		lg := decodertest.MetadataState(t, loc(nftAddr, 1030, 1), publisher, 4)

		ev, err := d.Decode(137, lg)
		require.NoError(t, err)

		state, ok := ev.(indexer.MetadataState)
		require.True(t, ok)
		require.Equal(t, uint8(4), state.State)
		require.Equal(t, did, state.Subject())
		require.Equal(t, publisher, state.UpdatedBy)
	})
}

func TestDecoder_DatatokenEvents(t *testing.T) {
	d := MustNew()

	t.Run("order started", func(t *testing.T) {
		amount, _ := new(big.Int).SetString("1000000000000000000", 10)
		lg := decodertest.OrderStarted(t, loc(datatokenAddr, 2000, 0), consumer, publisher, amount, 2)

		ev, err := d.Decode(137, lg)
		require.NoError(t, err)

		order, ok := ev.(indexer.OrderStarted)
		require.True(t, ok)
		require.Equal(t, datatokenAddr, order.Datatoken)
		require.Empty(t, order.Subject(), "attribution happens in the resolver")
		require.Equal(t, consumer, order.Consumer)
		require.Equal(t, publisher, order.Payer)
		require.True(t, decimal.RequireFromString("1000000000000000000").Equal(order.Amount))
		require.Equal(t, uint64(2), order.ServiceIndex)
		require.Equal(t, common.HexToAddress("0xaa"), order.PublishMarket)
	})

	t.Run("order reused", func(t *testing.T) {
		start := common.HexToHash("0xdead")
		lg := decodertest.OrderReused(t, loc(datatokenAddr, 2001, 4), start, consumer)

		ev, err := d.Decode(137, lg)
		require.NoError(t, err)

		reused, ok := ev.(indexer.OrderReused)
		require.True(t, ok)
		require.Equal(t, start, reused.StartOrderTx)
		require.Equal(t, consumer, reused.Caller)
	})

	t.Run("provider fee", func(t *testing.T) {
		feeToken := common.HexToAddress("0x5555555555555555555555555555555555555555")
		lg := decodertest.ProviderFee(t, loc(datatokenAddr, 2002, 1), publisher, feeToken, big.NewInt(42))

		ev, err := d.Decode(137, lg)
		require.NoError(t, err)

		fee, ok := ev.(indexer.ProviderFee)
		require.True(t, ok)
		require.Equal(t, publisher, fee.FeeAddress)
		require.Equal(t, feeToken, fee.FeeToken)
		require.Equal(t, int64(42), fee.FeeAmount.IntPart())
		require.Equal(t, uint64(1800000000), fee.ValidUntil)
	})
}

func TestDecoder_Failures(t *testing.T) {
	d := MustNew()

	good := decodertest.MetadataState(t, loc(nftAddr, 10, 0), publisher, 1)

	tests := []struct {
		name    string
		log     types.Log
		wantErr error
	}{
		{name: "no topics", log: types.Log{}, wantErr: ErrUnknownTopic},
		{
			name:    "unknown topic",
			log:     types.Log{Topics: []common.Hash{common.HexToHash("0x01")}},
			wantErr: ErrUnknownTopic,
		},
		{
			name: "truncated data",
			log: func() types.Log {
				l := good
				l.Data = l.Data[:16]
				return l
			}(),
			wantErr: ErrMalformedLog,
		},
		{
			name: "missing indexed topic",
			log: func() types.Log {
				l := good
				l.Topics = l.Topics[:1]
				return l
			}(),
			wantErr: ErrMalformedLog,
		},
		{
			name: "no data",
			log: func() types.Log {
				l := good
				l.Data = nil
				return l
			}(),
			wantErr: ErrMalformedLog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(137, tt.log)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	require.True(t, d.Known(good))
	require.False(t, d.Known(types.Log{}))
}

type stubCaller struct {
	calls int
	out   []byte
	err   error
}

func (s *stubCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	s.calls++
	if msg.To == nil || *msg.To != datatokenAddr {
		return nil, errors.New("unexpected target")
	}
	return s.out, s.err
}

func TestNFTResolver(t *testing.T) {
	d := MustNew()
	ctx := context.Background()

	t.Run("attributes orders and caches", func(t *testing.T) {
		caller := &stubCaller{out: decodertest.GetERC721AddressResult(t, nftAddr)}
		r := NewNFTResolver(d, caller, 137)

		lg := decodertest.OrderStarted(t, loc(datatokenAddr, 2000, 0), consumer, publisher, big.NewInt(1), 0)
		ev, err := d.Decode(137, lg)
		require.NoError(t, err)

		for range 2 {
			attributed, err := r.Attribute(ctx, ev)
			require.NoError(t, err)
			require.Equal(t, indexer.ComputeDID(nftAddr, 137), attributed.Subject())
			require.Equal(t, nftAddr, attributed.(indexer.OrderStarted).NFT)
		}
		require.Equal(t, 1, caller.calls)
	})

	t.Run("revert leaves order unattributed", func(t *testing.T) {
		caller := &stubCaller{err: errors.New("execution reverted")}
		r := NewNFTResolver(d, caller, 137)

		lg := decodertest.OrderReused(t, loc(datatokenAddr, 2001, 0), common.HexToHash("0x01"), consumer)
		ev, err := d.Decode(137, lg)
		require.NoError(t, err)

		attributed, err := r.Attribute(ctx, ev)
		require.ErrorIs(t, err, ErrNFTUnresolved)
		require.ErrorContains(t, err, "execution reverted")
		require.Empty(t, attributed.Subject())
	})

	t.Run("zero address is unresolved", func(t *testing.T) {
		caller := &stubCaller{out: decodertest.GetERC721AddressResult(t, common.Address{})}
		r := NewNFTResolver(d, caller, 137)

		_, err := r.ResolveNFT(ctx, datatokenAddr)
		require.ErrorIs(t, err, ErrNFTUnresolved)
	})

	t.Run("provider failure is not cached", func(t *testing.T) {
		caller := &stubCaller{err: errors.New("connection refused")}
		r := NewNFTResolver(d, caller, 137)

		_, err := r.ResolveNFT(ctx, datatokenAddr)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrNFTUnresolved)

		caller.err = nil
		caller.out = decodertest.GetERC721AddressResult(t, nftAddr)
		nft, err := r.ResolveNFT(ctx, datatokenAddr)
		require.NoError(t, err)
		require.Equal(t, nftAddr, nft)
		require.Equal(t, 2, caller.calls)
	})

	t.Run("metadata events pass through", func(t *testing.T) {
		r := NewNFTResolver(d, &stubCaller{}, 137)
		ev, err := d.Decode(137, decodertest.MetadataState(t, loc(nftAddr, 1, 0), publisher, 0))
		require.NoError(t, err)

		same, err := r.Attribute(ctx, ev)
		require.NoError(t, err)
		require.Equal(t, ev, same)
	})
}

func TestParseDocument(t *testing.T) {
	did := indexer.ComputeDID(nftAddr, 137)

	tests := []struct {
		name       string
		md         indexer.Metadata
		wantOpaque bool
		wantErr    error
	}{
		{
			name: "plain matching id",
			md:   indexer.Metadata{DID: did, Data: []byte(`{"id":"` + did + `"}`)},
		},
		{
			name: "plain without id",
			md:   indexer.Metadata{DID: did, Data: []byte(`{"metadata":{}}`)},
		},
		{
			name:    "plain with foreign id",
			md:      indexer.Metadata{DID: did, Data: []byte(`{"id":"did:op:abc"}`)},
			wantErr: ErrDIDMismatch,
		},
		{
			name:    "not json",
			md:      indexer.Metadata{DID: did, Data: []byte{0x5d, 0x00}},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "json null",
			md:      indexer.Metadata{DID: did, Data: []byte(" null")},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "json array",
			md:      indexer.Metadata{DID: did, Data: []byte(`[{"id":"` + did + `"}]`)},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty payload",
			md:      indexer.Metadata{DID: did},
			wantErr: ErrInvalidDocument,
		},
		{
			name: "object after whitespace",
			md:   indexer.Metadata{DID: did, Data: []byte("\n  {\"id\":\"" + did + "\"}")},
		},
		{
			name:       "compressed",
			md:         indexer.Metadata{DID: did, Flags: indexer.FlagCompressed, Data: []byte{0x5d, 0x00}},
			wantOpaque: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument(tt.md)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantOpaque, doc.Opaque)
			if !tt.wantOpaque {
				require.JSONEq(t, string(tt.md.Data), string(doc.Body))
			}
		})
	}
}
