package decoder

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
	"github.com/shopspring/decimal"
)

var (
	//go:embed abi/ERC721Template.json
	erc721TemplateABI []byte

	//go:embed abi/ERC20Template.json
	erc20TemplateABI []byte
)

var (
	// ErrUnknownTopic is returned for logs whose first topic is not a known event.
	ErrUnknownTopic = errors.New("unknown event topic")

	// ErrMalformedLog is returned when a log carries a known topic but cannot be unpacked.
	ErrMalformedLog = errors.New("malformed event log")
)

const (
	eventMetadataCreated = "MetadataCreated"
	eventMetadataUpdated = "MetadataUpdated"
	eventMetadataState   = "MetadataState"
	eventOrderStarted    = "OrderStarted"
	eventOrderReused     = "OrderReused"
	eventProviderFee     = "ProviderFee"

	methodGetERC721Address = "getERC721Address"
)

// Field names follow abi.ToCamelCase of the event argument names.
type metadataLog struct {
	CreatedBy    common.Address
	UpdatedBy    common.Address
	State        uint8
	DecryptorUrl string //nolint:revive,stylecheck
	Flags        []byte
	Data         []byte
	MetaDataHash [32]byte
	Timestamp    *big.Int
	BlockNumber  *big.Int
}

type metadataStateLog struct {
	UpdatedBy   common.Address
	State       uint8
	Timestamp   *big.Int
	BlockNumber *big.Int
}

type orderStartedLog struct {
	Consumer             common.Address
	Payer                common.Address
	Amount               *big.Int
	ServiceIndex         *big.Int
	Timestamp            *big.Int
	PublishMarketAddress common.Address
	BlockNumber          *big.Int
}

type orderReusedLog struct {
	OrderTxId [32]byte //nolint:revive,stylecheck
	Caller    common.Address
	Timestamp *big.Int
	Number    *big.Int
}

type providerFeeLog struct {
	ProviderFeeAddress common.Address
	ProviderFeeToken   common.Address
	ProviderFeeAmount  *big.Int
	ProviderData       []byte
	V                  uint8
	R                  [32]byte
	S                  [32]byte
	ValidUntil         *big.Int
}

type eventSpec struct {
	contract *abi.ABI
	event    abi.Event
	indexed  abi.Arguments
}

// Decoder turns raw contract logs into typed CrawlEvents.
// It is stateless after construction and safe for concurrent use.
type Decoder struct {
	nft       abi.ABI
	datatoken abi.ABI
	byTopic   map[common.Hash]eventSpec
}

// New parses the embedded contract ABIs.
func New() (*Decoder, error) {
	nft, err := abi.JSON(bytes.NewReader(erc721TemplateABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse NFT template ABI: %w", err)
	}

	datatoken, err := abi.JSON(bytes.NewReader(erc20TemplateABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse datatoken template ABI: %w", err)
	}

	d := &Decoder{
		nft:       nft,
		datatoken: datatoken,
		byTopic:   make(map[common.Hash]eventSpec),
	}

	for _, c := range []*abi.ABI{&d.nft, &d.datatoken} {
		for _, ev := range c.Events {
			var indexed abi.Arguments
			for _, arg := range ev.Inputs {
				if arg.Indexed {
					indexed = append(indexed, arg)
				}
			}
			d.byTopic[ev.ID] = eventSpec{contract: c, event: ev, indexed: indexed}
		}
	}

	return d, nil
}

// MustNew is New for static wiring. It panics if the embedded ABIs are broken.
func MustNew() *Decoder {
	d, err := New()
	if err != nil {
		panic(err)
	}
	return d
}

// Topics returns the signature hashes of every decodable event.
func (d *Decoder) Topics() []common.Hash {
	topics := make([]common.Hash, 0, len(d.byTopic))
	for topic := range d.byTopic {
		topics = append(topics, topic)
	}
	return topics
}

// EventTopic returns the signature hash of a known event name.
func (d *Decoder) EventTopic(name string) (common.Hash, bool) {
	for topic, spec := range d.byTopic {
		if spec.event.Name == name {
			return topic, true
		}
	}
	return common.Hash{}, false
}

// Known reports whether lg carries a decodable event topic.
func (d *Decoder) Known(lg types.Log) bool {
	if len(lg.Topics) == 0 {
		return false
	}
	_, ok := d.byTopic[lg.Topics[0]]
	return ok
}

// Decode converts lg into a CrawlEvent. Order events are returned without DID attribution.
func (d *Decoder) Decode(chainID uint64, lg types.Log) (indexer.CrawlEvent, error) {
	if len(lg.Topics) == 0 {
		return nil, fmt.Errorf("%w: log without topics", ErrUnknownTopic)
	}

	spec, ok := d.byTopic[lg.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, lg.Topics[0].Hex())
	}

	meta := indexer.EventMeta{
		ChainID:     chainID,
		Contract:    lg.Address,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
	}

	switch spec.event.Name {
	case eventMetadataCreated, eventMetadataUpdated:
		var out metadataLog
		if err := unpack(spec, &out, lg); err != nil {
			return nil, err
		}
		md := indexer.Metadata{
			DID:          indexer.ComputeDID(lg.Address, chainID),
			NFT:          lg.Address,
			Publisher:    out.CreatedBy,
			State:        out.State,
			DecryptorURL: out.DecryptorUrl,
			Flags:        firstByte(out.Flags),
			Data:         out.Data,
			MetadataHash: out.MetaDataHash,
			Timestamp:    toUint64(out.Timestamp),
		}
		if spec.event.Name == eventMetadataUpdated {
			md.Publisher = out.UpdatedBy
			return indexer.MetadataUpdated{EventMeta: meta, Metadata: md}, nil
		}
		return indexer.MetadataCreated{EventMeta: meta, Metadata: md}, nil

	case eventMetadataState:
		var out metadataStateLog
		if err := unpack(spec, &out, lg); err != nil {
			return nil, err
		}
		return indexer.MetadataState{
			EventMeta: meta,
			DID:       indexer.ComputeDID(lg.Address, chainID),
			NFT:       lg.Address,
			UpdatedBy: out.UpdatedBy,
			State:     out.State,
			Timestamp: toUint64(out.Timestamp),
		}, nil

	case eventOrderStarted:
		var out orderStartedLog
		if err := unpack(spec, &out, lg); err != nil {
			return nil, err
		}
		return indexer.OrderStarted{
			EventMeta:     meta,
			Order:         indexer.Order{Datatoken: lg.Address},
			Consumer:      out.Consumer,
			Payer:         out.Payer,
			Amount:        toDecimal(out.Amount),
			ServiceIndex:  toUint64(out.ServiceIndex),
			PublishMarket: out.PublishMarketAddress,
			Timestamp:     toUint64(out.Timestamp),
		}, nil

	case eventOrderReused:
		var out orderReusedLog
		if err := unpack(spec, &out, lg); err != nil {
			return nil, err
		}
		return indexer.OrderReused{
			EventMeta:    meta,
			Order:        indexer.Order{Datatoken: lg.Address},
			StartOrderTx: out.OrderTxId,
			Caller:       out.Caller,
			Timestamp:    toUint64(out.Timestamp),
		}, nil

	case eventProviderFee:
		var out providerFeeLog
		if err := unpack(spec, &out, lg); err != nil {
			return nil, err
		}
		return indexer.ProviderFee{
			EventMeta:    meta,
			Order:        indexer.Order{Datatoken: lg.Address},
			FeeAddress:   out.ProviderFeeAddress,
			FeeToken:     out.ProviderFeeToken,
			FeeAmount:    toDecimal(out.ProviderFeeAmount),
			ProviderData: out.ProviderData,
			ValidUntil:   toUint64(out.ValidUntil),
		}, nil
	}

	return nil, fmt.Errorf("%w: no decoder for %s", ErrUnknownTopic, spec.event.Name)
}

// unpack fills out from the log data and indexed topics.
func unpack(spec eventSpec, out any, lg types.Log) error {
	if len(lg.Data) > 0 {
		if err := spec.contract.UnpackIntoInterface(out, spec.event.Name, lg.Data); err != nil {
			return fmt.Errorf("%w: %s data: %w", ErrMalformedLog, spec.event.Name, err)
		}
	} else if len(spec.event.Inputs.NonIndexed()) > 0 {
		return fmt.Errorf("%w: %s without data", ErrMalformedLog, spec.event.Name)
	}

	if err := abi.ParseTopics(out, spec.indexed, lg.Topics[1:]); err != nil {
		return fmt.Errorf("%w: %s topics: %w", ErrMalformedLog, spec.event.Name, err)
	}

	return nil
}

func firstByte(b []byte) uint8 {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func toUint64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

func toDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}
