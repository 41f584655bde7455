package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/internal/rpc/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func rangeOf(from, to uint64) any {
	return mock.MatchedBy(func(q ethereum.FilterQuery) bool {
		return q.FromBlock.Uint64() == from && q.ToBlock.Uint64() == to
	})
}

func TestLogFetcher_NextRange(t *testing.T) {
	lf := NewLogFetcher(FetcherConfig{ChunkSize: 100, TailWindow: 3}, nil, logger.NewNopLogger())

	tests := []struct {
		name     string
		mode     FetchMode
		next     uint64
		safe     uint64
		wantFrom uint64
		wantTo   uint64
		wantOK   bool
	}{
		{name: "backfill chunk", mode: ModeBackfill, next: 1, safe: 1000, wantFrom: 1, wantTo: 100, wantOK: true},
		{name: "backfill capped by safe head", mode: ModeBackfill, next: 950, safe: 1000, wantFrom: 950, wantTo: 1000, wantOK: true},
		{name: "live window", mode: ModeLive, next: 990, safe: 1000, wantFrom: 990, wantTo: 992, wantOK: true},
		{name: "single block", mode: ModeLive, next: 1000, safe: 1000, wantFrom: 1000, wantTo: 1000, wantOK: true},
		{name: "caught up", mode: ModeLive, next: 1001, safe: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf.SetMode(tt.mode)
			from, to, ok := lf.NextRange(tt.next, tt.safe)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantFrom, from)
			require.Equal(t, tt.wantTo, to)
		})
	}
}

func TestLogFetcher_SafeHead(t *testing.T) {
	tests := []struct {
		name     string
		head     uint64
		depth    uint64
		wantSafe uint64
		wantOK   bool
	}{
		{name: "no depth", head: 500, wantSafe: 500, wantOK: true},
		{name: "with depth", head: 500, depth: 12, wantSafe: 488, wantOK: true},
		{name: "chain shorter than depth", head: 5, depth: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewEthClient(t)
			client.EXPECT().GetLatestBlockNumber(mock.Anything).Return(tt.head, nil)

			lf := NewLogFetcher(FetcherConfig{ChunkSize: 10, TailWindow: 1, FinalityDepth: tt.depth}, client, logger.NewNopLogger())
			head, safe, ok, err := lf.SafeHead(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.head, head)
			require.Equal(t, tt.wantSafe, safe)
			require.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestLogFetcher_FetchRangeNarrows(t *testing.T) {
	tooMany := errors.New("query returned more than 10000 results")

	t.Run("halves without suggestion", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().GetLogs(mock.Anything, rangeOf(100, 199)).Return(nil, tooMany).Once()
		client.EXPECT().GetLogs(mock.Anything, rangeOf(100, 149)).Return([]types.Log{{BlockNumber: 120}}, nil).Once()

		lf := NewLogFetcher(FetcherConfig{ChunkSize: 100, TailWindow: 1}, client, logger.NewNopLogger())
		res, err := lf.FetchRange(context.Background(), 100, 199)
		require.NoError(t, err)
		require.Equal(t, uint64(100), res.FromBlock)
		require.Equal(t, uint64(149), res.ToBlock)
		require.Len(t, res.Logs, 1)
	})

	t.Run("follows provider suggestion", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().GetLogs(mock.Anything, rangeOf(100, 199)).
			Return(nil, errors.New("Query returned more than 10000 results. Try with this block range [0x64, 0x6e].")).Once()
		client.EXPECT().GetLogs(mock.Anything, rangeOf(100, 110)).Return(nil, nil).Once()

		lf := NewLogFetcher(FetcherConfig{ChunkSize: 100, TailWindow: 1}, client, logger.NewNopLogger())
		res, err := lf.FetchRange(context.Background(), 100, 199)
		require.NoError(t, err)
		require.Equal(t, uint64(110), res.ToBlock)
	})

	t.Run("single block cannot shrink", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().GetLogs(mock.Anything, rangeOf(7, 7)).Return(nil, tooMany).Once()

		lf := NewLogFetcher(FetcherConfig{ChunkSize: 100, TailWindow: 1}, client, logger.NewNopLogger())
		_, err := lf.FetchRange(context.Background(), 7, 7)
		require.ErrorIs(t, err, tooMany)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		client := mocks.NewEthClient(t)
		client.EXPECT().GetLogs(mock.Anything, rangeOf(1, 10)).Return(nil, boom).Once()

		lf := NewLogFetcher(FetcherConfig{ChunkSize: 100, TailWindow: 1}, client, logger.NewNopLogger())
		_, err := lf.FetchRange(context.Background(), 1, 10)
		require.ErrorIs(t, err, boom)
	})
}
