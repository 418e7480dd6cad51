package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		name   string
		params Params
		ok     bool
	}{
		{name: "defaults", params: Params{}.WithDefaults(), ok: true},
		{name: "max limit", params: Params{Page: 3, Limit: MaxLimit}, ok: true},
		{name: "zero page", params: Params{Page: 0, Limit: 10}},
		{name: "negative page", params: Params{Page: -1, Limit: 10}},
		{name: "zero limit", params: Params{Page: 1, Limit: 0}},
		{name: "limit too large", params: Params{Page: 1, Limit: MaxLimit + 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestOffsetAndMeta(t *testing.T) {
	p := Params{Page: 3, Limit: 20}
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 0, Params{Page: 1, Limit: 20}.Offset())

	meta := NewMeta(p, 41)
	assert.Equal(t, Meta{Page: 3, Limit: 20, Total: 41, TotalPages: 3}, meta)
	assert.Equal(t, 0, NewMeta(p, 0).TotalPages)
	assert.Equal(t, 2, NewMeta(Params{Page: 1, Limit: 20}, 40).TotalPages)
}
