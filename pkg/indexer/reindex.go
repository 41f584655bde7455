package indexer

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ErrInvalidReindexTask is returned for tasks rejected at admission.
var ErrInvalidReindexTask = errors.New("invalid reindex task")

// SelectorKind is the kind of data a reindex task targets.
type SelectorKind string

const (
	SelectorNone  SelectorKind = ""
	SelectorTx    SelectorKind = "tx"
	SelectorRange SelectorKind = "range"
	SelectorDID   SelectorKind = "did"
)

// BlockRange is an inclusive block interval.
type BlockRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Overlaps reports whether r and o share at least one block.
func (r BlockRange) Overlaps(o BlockRange) bool {
	return r.From <= o.To && o.From <= r.To
}

// Union returns the smallest range covering r and o.
func (r BlockRange) Union(o BlockRange) BlockRange {
	return BlockRange{From: min(r.From, o.From), To: max(r.To, o.To)}
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.From, r.To)
}

// ReindexTask asks the worker of one network to reprocess a transaction,
// a block range or every recorded event of a DID. Exactly one selector is set.
type ReindexTask struct {
	ID      uuid.UUID    `json:"id"`
	ChainID uint64       `json:"chainId"`
	TxHash  *common.Hash `json:"txHash,omitempty"`
	Range   *BlockRange  `json:"range,omitempty"`
	DID     string       `json:"did,omitempty"`

	// Rewind moves the checkpoint back to Range.From-1 when the range starts
	// below it, so ordinary crawling replays everything after that block.
	Rewind bool `json:"rewind,omitempty"`

	SubmittedAt time.Time `json:"submittedAt"`
}

// NewTxReindexTask targets the logs of a single transaction.
func NewTxReindexTask(chainID uint64, txHash common.Hash) ReindexTask {
	return ReindexTask{ID: uuid.New(), ChainID: chainID, TxHash: &txHash, SubmittedAt: time.Now()}
}

// NewRangeReindexTask targets every log in [from, to].
func NewRangeReindexTask(chainID, from, to uint64, rewind bool) ReindexTask {
	return ReindexTask{
		ID:          uuid.New(),
		ChainID:     chainID,
		Range:       &BlockRange{From: from, To: to},
		Rewind:      rewind,
		SubmittedAt: time.Now(),
	}
}

// NewDIDReindexTask targets every recorded transaction of a DID.
func NewDIDReindexTask(chainID uint64, did string) ReindexTask {
	return ReindexTask{ID: uuid.New(), ChainID: chainID, DID: did, SubmittedAt: time.Now()}
}

// Selector returns which selector is set. It does not validate.
func (t ReindexTask) Selector() SelectorKind {
	switch {
	case t.TxHash != nil:
		return SelectorTx
	case t.Range != nil:
		return SelectorRange
	case t.DID != "":
		return SelectorDID
	default:
		return SelectorNone
	}
}

// Key identifies the selector for duplicate detection.
// Range tasks share one key kind; overlap is checked separately.
func (t ReindexTask) Key() string {
	switch t.Selector() {
	case SelectorTx:
		return "tx:" + t.TxHash.Hex()
	case SelectorDID:
		return "did:" + t.DID
	case SelectorRange:
		return "range:" + t.Range.String()
	default:
		return ""
	}
}

// Validate checks the task can be routed and executed.
func (t ReindexTask) Validate() error {
	if t.ChainID == 0 {
		return fmt.Errorf("%w: missing chain id", ErrInvalidReindexTask)
	}

	selectors := 0
	if t.TxHash != nil {
		selectors++
		if *t.TxHash == (common.Hash{}) {
			return fmt.Errorf("%w: empty transaction hash", ErrInvalidReindexTask)
		}
	}
	if t.Range != nil {
		selectors++
		if t.Range.From > t.Range.To {
			return fmt.Errorf("%w: range %s is inverted", ErrInvalidReindexTask, t.Range)
		}
	}
	if t.DID != "" {
		selectors++
		if !IsDID(t.DID) {
			return fmt.Errorf("%w: %q is not a %s identifier", ErrInvalidReindexTask, t.DID, DIDPrefix)
		}
	}

	switch selectors {
	case 0:
		return fmt.Errorf("%w: no selector", ErrInvalidReindexTask)
	case 1:
	default:
		return fmt.Errorf("%w: more than one selector", ErrInvalidReindexTask)
	}

	if t.Rewind && t.Range == nil {
		return fmt.Errorf("%w: rewind requires a block range", ErrInvalidReindexTask)
	}

	return nil
}
