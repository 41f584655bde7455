package rpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type dataError struct {
	data any
	msg  string
}

func (d *dataError) Error() string  { return d.msg }
func (d *dataError) ErrorData() any { return d.data }

func TestIsTooManyResultsError(t *testing.T) {
	t.Parallel()

	const infura = "Query returned more than 10000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."

	tests := []struct {
		name      string
		err       error
		wantMatch bool
		wantData  string
	}{
		{name: "nil", err: nil},
		{name: "unrelated", err: errors.New("execution reverted")},
		{
			name:      "data error",
			err:       &dataError{data: infura, msg: "query failed"},
			wantMatch: true,
			wantData:  infura,
		},
		{
			name:      "plain message",
			err:       fmt.Errorf("eth_getLogs: %w", errors.New("block range is too wide")),
			wantMatch: true,
			wantData:  "eth_getLogs: block range is too wide",
		},
		{
			name: "data error with unrelated payload",
			err:  &dataError{data: "Query returned less than 20000 results.", msg: "nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotMatch, gotData := IsTooManyResultsError(tt.err)
			require.Equal(t, tt.wantMatch, gotMatch)
			require.Equal(t, tt.wantData, gotData)
		})
	}
}

func TestParseSuggestedBlockRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      string
		wantFrom uint64
		wantTo   uint64
		wantOK   bool
	}{
		{name: "empty", msg: ""},
		{name: "no range", msg: "Query returned more than 20000 results."},
		{
			name:     "hex range",
			msg:      "Try with this block range [0x7dfd25, 0x7e0fcc].",
			wantFrom: 8256805,
			wantTo:   8261580,
			wantOK:   true,
		},
		{name: "mixed case and spaces", msg: "[0x1aBc,   0x2DEF]", wantFrom: 6844, wantTo: 11759, wantOK: true},
		{name: "invalid hex", msg: "[0xZZZZ, 0x1234]"},
		{name: "inverted range", msg: "[0x20, 0x10]"},
		{name: "first of many", msg: "[0x10, 0x20] and [0x30, 0x40]", wantFrom: 16, wantTo: 32, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			from, to, ok := ParseSuggestedBlockRange(tt.msg)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantFrom, from)
			require.Equal(t, tt.wantTo, to)
		})
	}
}
