package indexer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EventKind names a decoded on-chain occurrence.
type EventKind string

const (
	KindMetadataCreated EventKind = "metadata-created"
	KindMetadataUpdated EventKind = "metadata-updated"
	KindMetadataState   EventKind = "metadata-state"
	KindOrderStarted    EventKind = "order-started"
	KindOrderReused     EventKind = "order-reused"
	KindProviderFee     EventKind = "provider-fee"
)

// AllEventKinds lists every kind a worker can produce.
var AllEventKinds = []EventKind{
	KindMetadataCreated,
	KindMetadataUpdated,
	KindMetadataState,
	KindOrderStarted,
	KindOrderReused,
	KindProviderFee,
}

// Valid reports whether k is one of AllEventKinds.
func (k EventKind) Valid() bool {
	for _, known := range AllEventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// EventMeta locates the log an event was decoded from.
// (ChainID, TxHash, LogIndex) identifies an event.
type EventMeta struct {
	ChainID     uint64         `json:"chainId"`
	Contract    common.Address `json:"contract"`
	TxHash      common.Hash    `json:"txHash"`
	BlockNumber uint64         `json:"blockNumber"`
	LogIndex    uint           `json:"logIndex"`
}

// Meta returns the location of the event.
func (m EventMeta) Meta() EventMeta { return m }

func (EventMeta) crawlEvent() {}

// CrawlEvent is a decoded contract log. The set of implementations is closed:
// MetadataCreated, MetadataUpdated, MetadataState, OrderStarted, OrderReused, ProviderFee.
type CrawlEvent interface {
	Kind() EventKind
	Meta() EventMeta
	// Subject returns the DID the event is about, or "" when it could not be attributed.
	Subject() string

	crawlEvent()
}

// Metadata is the payload shared by MetadataCreated and MetadataUpdated.
type Metadata struct {
	DID          string         `json:"did"`
	NFT          common.Address `json:"nftAddress"`
	Publisher    common.Address `json:"publisher"`
	State        uint8          `json:"state"`
	DecryptorURL string         `json:"decryptorUrl"`
	Flags        uint8          `json:"flags"`
	Data         []byte         `json:"data"`
	MetadataHash common.Hash    `json:"metadataHash"`
	Timestamp    uint64         `json:"timestamp"`
}

// Compressed reports whether the document payload is compressed.
func (m Metadata) Compressed() bool { return m.Flags&FlagCompressed != 0 }

// Encrypted reports whether the document payload is encrypted.
func (m Metadata) Encrypted() bool { return m.Flags&FlagEncrypted != 0 }

const (
	FlagCompressed uint8 = 1 << 0
	FlagEncrypted  uint8 = 1 << 1
)

// MetadataCreated is emitted when an asset document is published for an NFT.
type MetadataCreated struct {
	EventMeta
	Metadata
}

func (MetadataCreated) Kind() EventKind     { return KindMetadataCreated }
func (e MetadataCreated) Subject() string { return e.DID }

// MetadataUpdated is emitted when the document of an NFT is replaced.
type MetadataUpdated struct {
	EventMeta
	Metadata
}

func (MetadataUpdated) Kind() EventKind     { return KindMetadataUpdated }
func (e MetadataUpdated) Subject() string { return e.DID }

// MetadataState is emitted when only the lifecycle state of an asset changes.
type MetadataState struct {
	EventMeta
	DID       string         `json:"did"`
	NFT       common.Address `json:"nftAddress"`
	UpdatedBy common.Address `json:"updatedBy"`
	State     uint8          `json:"state"`
	Timestamp uint64         `json:"timestamp"`
}

func (MetadataState) Kind() EventKind     { return KindMetadataState }
func (e MetadataState) Subject() string { return e.DID }

// Order is the attribution shared by datatoken events.
// DID and NFT are resolved from the datatoken and may be empty when resolution failed.
type Order struct {
	Datatoken common.Address `json:"datatoken"`
	NFT       common.Address `json:"nftAddress"`
	DID       string         `json:"did"`
}

// OrderStarted is emitted when a consumer pays for access to a service.
type OrderStarted struct {
	EventMeta
	Order
	Consumer      common.Address  `json:"consumer"`
	Payer         common.Address  `json:"payer"`
	Amount        decimal.Decimal `json:"amount"`
	ServiceIndex  uint64          `json:"serviceIndex"`
	PublishMarket common.Address  `json:"publishMarketAddress"`
	Timestamp     uint64          `json:"timestamp"`
}

func (OrderStarted) Kind() EventKind     { return KindOrderStarted }
func (e OrderStarted) Subject() string { return e.DID }

// OrderReused is emitted when a previous order is reused instead of paying again.
type OrderReused struct {
	EventMeta
	Order
	StartOrderTx common.Hash    `json:"startOrderTx"`
	Caller       common.Address `json:"caller"`
	Timestamp    uint64         `json:"timestamp"`
}

func (OrderReused) Kind() EventKind     { return KindOrderReused }
func (e OrderReused) Subject() string { return e.DID }

// ProviderFee is emitted when a provider fee is attached to an order.
type ProviderFee struct {
	EventMeta
	Order
	FeeAddress   common.Address  `json:"providerFeeAddress"`
	FeeToken     common.Address  `json:"providerFeeToken"`
	FeeAmount    decimal.Decimal `json:"providerFeeAmount"`
	ProviderData []byte          `json:"providerData"`
	ValidUntil   uint64          `json:"validUntil"`
}

func (ProviderFee) Kind() EventKind     { return KindProviderFee }
func (e ProviderFee) Subject() string { return e.DID }
