package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		page, limit string
		want        Params
	}{
		{"defaults", "", "", Params{Page: 1, Limit: 10}},
		{"explicit", "3", "25", Params{Page: 3, Limit: 25}},
		{"negative", "-2", "0", Params{Page: 1, Limit: 10}},
		{"garbage", "abc", "1.5", Params{Page: 1, Limit: 10}},
		{"capped", "1", "1000", Params{Page: 1, Limit: MaxLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.page, tt.limit))
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, New(1, 10).Offset())
	assert.Equal(t, 20, New(3, 10).Offset())

	for _, tc := range []struct{ page, limit string }{
		{"9223372036854775807", "100"},
		{"922337203685477582", "10"},
		{"9223372036854775807", ""},
	} {
		p := Parse(tc.page, tc.limit)
		assert.GreaterOrEqual(t, p.Offset(), 0, "page=%s limit=%s", tc.page, tc.limit)
		assert.Greater(t, p.Page, 1)
	}
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, Meta{Page: 1, Limit: 10, TotalItems: 0, TotalPages: 0}, NewMeta(New(1, 10), 0))
	assert.Equal(t, 1, NewMeta(New(1, 10), 10).TotalPages)
	assert.Equal(t, 2, NewMeta(New(1, 10), 11).TotalPages)
	assert.Equal(t, 7, NewMeta(New(2, 3), 19).TotalPages)
}
