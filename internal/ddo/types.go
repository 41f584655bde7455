package ddo

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// DDO is the indexed document of one asset.
type DDO struct {
	DID          string          `meddler:"did" json:"did"`
	ChainID      uint64          `meddler:"chain_id" json:"chainId"`
	NFTAddress   common.Address  `meddler:"nft_address,address" json:"nftAddress"`
	State        uint8           `meddler:"state" json:"state"`
	Flags        uint8           `meddler:"flags" json:"flags"`
	MetadataHash *common.Hash    `meddler:"metadata_hash,hash" json:"metadataHash,omitempty"`
	DecryptorURL string          `meddler:"decryptor_url,zeroisnull" json:"decryptorUrl,omitempty"`
	Body         string          `meddler:"body,zeroisnull" json:"-"`
	OpaqueData   string          `meddler:"opaque_data,zeroisnull" json:"opaqueData,omitempty"`
	Owner        *common.Address `meddler:"owner,address" json:"owner,omitempty"`
	CreatedTx    *common.Hash    `meddler:"created_tx,hash" json:"createdTx,omitempty"`
	CreatedBlock uint64          `meddler:"created_block" json:"createdBlock"`
	LastTx       *common.Hash    `meddler:"last_tx,hash" json:"lastTx,omitempty"`
	LastBlock    uint64          `meddler:"last_block" json:"lastBlock"`
	LastLogIndex uint            `meddler:"last_log_index" json:"lastLogIndex"`
	Version      uint64          `meddler:"version" json:"version"`
	OrderCount   uint64          `meddler:"order_count" json:"orderCount"`
	UpdatedAt    int64           `meddler:"updated_at" json:"updatedAt"`
}

// Document returns the plain JSON body, or nil for opaque payloads.
func (d *DDO) Document() json.RawMessage {
	if d.Body == "" {
		return nil
	}
	return json.RawMessage(d.Body)
}

// Opaque reports whether the document payload is kept as raw bytes.
func (d *DDO) Opaque() bool {
	return d.OpaqueData != ""
}

// Order is one recorded datatoken event.
type Order struct {
	ChainID      uint64          `meddler:"chain_id" json:"chainId"`
	TxHash       common.Hash     `meddler:"tx_hash,hash" json:"txHash"`
	LogIndex     uint            `meddler:"log_index" json:"logIndex"`
	Kind         string          `meddler:"kind" json:"kind"`
	BlockNumber  uint64          `meddler:"block_number" json:"blockNumber"`
	Datatoken    common.Address  `meddler:"datatoken,address" json:"datatoken"`
	NFTAddress   *common.Address `meddler:"nft_address,address" json:"nftAddress,omitempty"`
	DID          string          `meddler:"did,zeroisnull" json:"did,omitempty"`
	Consumer     *common.Address `meddler:"consumer,address" json:"consumer,omitempty"`
	Payer        *common.Address `meddler:"payer,address" json:"payer,omitempty"`
	Amount       decimal.Decimal `meddler:"amount,decimal" json:"amount"`
	ServiceIndex uint64          `meddler:"service_index,zeroisnull" json:"serviceIndex"`
	StartOrderTx *common.Hash    `meddler:"start_order_tx,hash" json:"startOrderTx,omitempty"`
	FeeToken     *common.Address `meddler:"fee_token,address" json:"feeToken,omitempty"`
	Timestamp    uint64          `meddler:"timestamp" json:"timestamp"`
}

// EventRecord is one row of the per-asset event history.
type EventRecord struct {
	ChainID     uint64         `meddler:"chain_id" json:"chainId"`
	TxHash      common.Hash    `meddler:"tx_hash,hash" json:"txHash"`
	LogIndex    uint           `meddler:"log_index" json:"logIndex"`
	BlockNumber uint64         `meddler:"block_number" json:"blockNumber"`
	Kind        string         `meddler:"kind" json:"kind"`
	DID         string         `meddler:"did,zeroisnull" json:"did,omitempty"`
	Contract    common.Address `meddler:"contract,address" json:"contract"`
	RecordedAt  int64          `meddler:"recorded_at" json:"recordedAt"`
}
