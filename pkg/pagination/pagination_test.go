package pagination

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Defaults(t *testing.T) {
	for _, in := range [][2]string{{"", ""}, {"0", "0"}, {"-3", "-1"}, {"abc", "x"}} {
		p := Parse(in[0], in[1])
		assert.Equal(t, Params{Page: 1, Limit: 20}, p, in)
	}
}

func TestParse_Values(t *testing.T) {
	p := Parse("3", "15")
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 15, p.Limit)
	assert.Equal(t, 30, p.Offset())
}

func TestParse_CapsLimit(t *testing.T) {
	p := Parse("1", "500")
	assert.Equal(t, MaxLimit, p.Limit)
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, Meta{Total: 45, Page: 2, Limit: 20, TotalPages: 3}, NewMeta(45, Params{Page: 2, Limit: 20}))
	assert.Equal(t, Meta{Total: 0, Page: 1, Limit: 20, TotalPages: 0}, NewMeta(0, Params{}))
	assert.Equal(t, 1, NewMeta(20, Params{Page: 1, Limit: 20}).TotalPages)
}

func TestMeta_WireKeys(t *testing.T) {
	raw, err := json.Marshal(NewMeta(45, Parse("2", "20")))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"total":45,"page":2,"limit":20,"totalPages":3}`, string(raw))
}
