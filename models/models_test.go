package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotListRemove(t *testing.T) {
	tests := []struct {
		name string
		list LotList
		lot  string
		want LotList
	}{
		{name: "removes single match", list: LotList{"7", "8"}, lot: "7", want: LotList{"8"}},
		{name: "preserves order", list: LotList{"7", "8", "9"}, lot: "8", want: LotList{"7", "9"}},
		{name: "removes only first occurrence", list: LotList{"7", "8", "7"}, lot: "7", want: LotList{"8", "7"}},
		{name: "absent lot is a no-op", list: LotList{"7"}, lot: "9", want: LotList{"7"}},
		{name: "empty list", list: LotList{}, lot: "7", want: LotList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.list.Remove(tt.lot))
		})
	}
}

func TestLotListValueScan(t *testing.T) {
	original := LotList{"3", "1", "2"}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned LotList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, original, scanned)
}

func TestLotListScanNil(t *testing.T) {
	scanned := LotList{"leftover"}
	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
}

func TestLotListValueNil(t *testing.T) {
	var list LotList
	value, err := list.Value()
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(value.([]byte)))
}
