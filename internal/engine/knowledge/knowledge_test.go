package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindProductCode(t *testing.T) {
	kb := NewBase()

	tests := []struct {
		question string
		want     string
	}{
		{"how many pallets of mh001 today", "MH001"},
		{"inventory of ALDR50", "ALDR50"},
		{"weight of mep9090 this week", "MEP9090"},
		{"show me the top10 products", ""},
		{"how many pallets today", ""},
		{"transfers for x1a32b", ""}, // single leading letter is not a code
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, kb.FindProductCode(tt.question), tt.question)
	}
}

func TestFindPalletNumber(t *testing.T) {
	kb := NewBase()

	assert.Equal(t, "250605/12", kb.FindPalletNumber("where is pallet 250605/12"))
	assert.Equal(t, "", kb.FindPalletNumber("where is pallet 2506/12"))
	assert.Equal(t, "", kb.FindPalletNumber("no pallet here"))
}

func TestFindLocationLongestMatchWins(t *testing.T) {
	kb := NewBase()

	tests := []struct {
		question string
		want     string
	}{
		{"stock in the back car park", "Back Car Park"},
		{"stock in car park", "Back Car Park"},
		{"what is in fold mill", "Fold Mill"},
		{"move to bulk room", "Bulk Room"},
		{"散裝 有咩貨", "Bulk Room"},
		{"nothing here", ""},
	}

	for _, tt := range tests {
		got, ok := kb.FindLocation(tt.question)
		assert.Equal(t, tt.want != "", ok, tt.question)
		assert.Equal(t, tt.want, got, tt.question)
	}
}

func TestLocationColumn(t *testing.T) {
	kb := NewBase()

	col, ok := kb.LocationColumn("Fold Mill")
	assert.True(t, ok)
	assert.Equal(t, "fold", col)

	_, ok = kb.LocationColumn("Narnia")
	assert.False(t, ok)
}

func TestHasColumn(t *testing.T) {
	kb := NewBase()

	assert.True(t, kb.HasColumn("record_palletinfo", "generate_time"))
	assert.False(t, kb.HasColumn("record_palletinfo", "tran_date"))
	assert.False(t, kb.HasColumn("no_such_table", "id"))
}
