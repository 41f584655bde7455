package crawler

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
	"github.com/stretchr/testify/require"
)

func rangeTask(from, to uint64, rewind bool) indexer.ReindexTask {
	return indexer.NewRangeReindexTask(137, from, to, rewind)
}

func TestInbox_Push(t *testing.T) {
	txA := common.HexToHash("0xdead")
	txB := common.HexToHash("0xbeef")
	did := indexer.ComputeDID(common.HexToAddress("0x1111111111111111111111111111111111111111"), 137)

	tests := []struct {
		name    string
		pushes  []indexer.ReindexTask
		results []PushResult
		want    []string
	}{
		{
			name:    "distinct tasks keep submission order",
			pushes:  []indexer.ReindexTask{indexer.NewTxReindexTask(137, txA), rangeTask(10, 20, false), indexer.NewDIDReindexTask(137, did)},
			results: []PushResult{Queued, Queued, Queued},
			want:    []string{"tx:" + txA.Hex(), "range:[10,20]", "did:" + did},
		},
		{
			name:    "same tx collapses in first position",
			pushes:  []indexer.ReindexTask{indexer.NewTxReindexTask(137, txA), indexer.NewTxReindexTask(137, txB), indexer.NewTxReindexTask(137, txA)},
			results: []PushResult{Queued, Queued, Merged},
			want:    []string{"tx:" + txA.Hex(), "tx:" + txB.Hex()},
		},
		{
			name:    "same did collapses",
			pushes:  []indexer.ReindexTask{indexer.NewDIDReindexTask(137, did), indexer.NewDIDReindexTask(137, did)},
			results: []PushResult{Queued, Merged},
			want:    []string{"did:" + did},
		},
		{
			name:    "overlapping ranges union",
			pushes:  []indexer.ReindexTask{rangeTask(10, 20, false), rangeTask(15, 30, false)},
			results: []PushResult{Queued, Merged},
			want:    []string{"range:[10,30]"},
		},
		{
			name:    "adjacent ranges stay apart",
			pushes:  []indexer.ReindexTask{rangeTask(10, 20, false), rangeTask(21, 30, false)},
			results: []PushResult{Queued, Queued},
			want:    []string{"range:[10,20]", "range:[21,30]"},
		},
		{
			name: "bridging range absorbs both neighbours",
			pushes: []indexer.ReindexTask{
				rangeTask(10, 20, false),
				indexer.NewTxReindexTask(137, txA),
				rangeTask(30, 40, false),
				rangeTask(18, 32, false),
			},
			results: []PushResult{Queued, Queued, Queued, Merged},
			want:    []string{"range:[10,40]", "tx:" + txA.Hex()},
		},
		{
			name:    "rewind range stays apart from an overlapping plain range",
			pushes:  []indexer.ReindexTask{rangeTask(1, 100, false), rangeTask(50, 60, true)},
			results: []PushResult{Queued, Queued},
			want:    []string{"range:[1,100]", "range:[50,60]"},
		},
		{
			name: "ranges merge only with the same rewind flag",
			pushes: []indexer.ReindexTask{
				rangeTask(50, 60, true),
				rangeTask(1, 100, false),
				rangeTask(55, 70, true),
				rangeTask(90, 120, false),
			},
			results: []PushResult{Queued, Queued, Merged, Merged},
			want:    []string{"range:[50,70]", "range:[1,120]"},
		},
		{
			name: "union reaches an earlier range",
			pushes: []indexer.ReindexTask{
				rangeTask(1, 5, false),
				rangeTask(10, 20, false),
				rangeTask(4, 12, false),
			},
			results: []PushResult{Queued, Queued, Merged},
			want:    []string{"range:[1,20]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbox := NewInbox(10)
			for i, task := range tt.pushes {
				res, err := inbox.Push(task)
				require.NoError(t, err)
				require.Equal(t, tt.results[i], res, "push %d", i)
			}

			keys := make([]string, 0, inbox.Len())
			for _, task := range inbox.Pending() {
				keys = append(keys, task.Key())
			}
			require.Equal(t, tt.want, keys)
		})
	}
}

func TestInbox_LastSubmissionWinsOnParameters(t *testing.T) {
	inbox := NewInbox(10)

	first := rangeTask(10, 20, true)
	last := rangeTask(12, 14, true)

	_, err := inbox.Push(first)
	require.NoError(t, err)
	_, err = inbox.Push(last)
	require.NoError(t, err)

	task, ok := inbox.Pop()
	require.True(t, ok)
	require.Equal(t, last.ID, task.ID)
	require.True(t, task.Rewind)
	require.Equal(t, indexer.BlockRange{From: 10, To: 20}, *task.Range)

	_, ok = inbox.Pop()
	require.False(t, ok)
}

func TestInbox_Capacity(t *testing.T) {
	inbox := NewInbox(2)

	_, err := inbox.Push(indexer.NewTxReindexTask(137, common.HexToHash("0x01")))
	require.NoError(t, err)
	_, err = inbox.Push(indexer.NewTxReindexTask(137, common.HexToHash("0x02")))
	require.NoError(t, err)

	_, err = inbox.Push(indexer.NewTxReindexTask(137, common.HexToHash("0x03")))
	require.ErrorIs(t, err, ErrInboxFull)

	// duplicates still collapse into a full inbox
	res, err := inbox.Push(indexer.NewTxReindexTask(137, common.HexToHash("0x02")))
	require.NoError(t, err)
	require.Equal(t, Merged, res)
	require.Equal(t, 2, inbox.Len())

	// a flood of duplicates stays bounded
	for range 100 {
		_, err := inbox.Push(indexer.NewTxReindexTask(137, common.HexToHash("0x01")))
		require.NoError(t, err)
	}
	require.Equal(t, 2, inbox.Len())
}

func TestInbox_MixedRewindOverlapKeepsBounds(t *testing.T) {
	inbox := NewInbox(10)

	_, err := inbox.Push(rangeTask(1, 100, false))
	require.NoError(t, err)
	_, err = inbox.Push(rangeTask(50, 60, true))
	require.NoError(t, err)

	plain, ok := inbox.Pop()
	require.True(t, ok)
	require.False(t, plain.Rewind)
	require.Equal(t, indexer.BlockRange{From: 1, To: 100}, *plain.Range)

	rewind, ok := inbox.Pop()
	require.True(t, ok)
	require.True(t, rewind.Rewind)
	require.Equal(t, indexer.BlockRange{From: 50, To: 60}, *rewind.Range)
}

func TestInbox_PushFront(t *testing.T) {
	inbox := NewInbox(1)

	task := rangeTask(100, 500, false)
	_, err := inbox.Push(task)
	require.NoError(t, err)

	popped, ok := inbox.Pop()
	require.True(t, ok)

	// the freed slot is taken while the popped range is being replayed
	tx := indexer.NewTxReindexTask(137, common.HexToHash("0x01"))
	_, err = inbox.Push(tx)
	require.NoError(t, err)

	popped.Range = &indexer.BlockRange{From: 200, To: 500}
	inbox.PushFront(popped)
	require.Equal(t, 2, inbox.Len())

	head, ok := inbox.Pop()
	require.True(t, ok)
	require.Equal(t, task.ID, head.ID)
	require.Equal(t, "range:[200,500]", head.Key())

	next, ok := inbox.Pop()
	require.True(t, ok)
	require.Equal(t, tx.Key(), next.Key())
}
