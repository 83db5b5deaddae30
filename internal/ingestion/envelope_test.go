package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

func TestParseEnvelope(t *testing.T) {
	raw := []byte(`{"type":"swap","block":12,"log_index":3,"tx_hash":"0xABCDEF0000000000000000000000000000000000000000000000000000000001","timestamp":1700000012,"data":{"pair":"0x01"}}`)

	env, err := ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeSwap, env.Type)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000000000000000000000000000001", env.TxHash)

	meta := env.Meta()
	assert.Equal(t, int64(12), meta.Block)
	assert.Equal(t, int64(3), meta.LogIndex)
	assert.Equal(t, int64(1700000012), meta.Timestamp)

	p, err := env.Pair()
	require.NoError(t, err)
	assert.Equal(t, "0x01", p)
}

func TestParseEnvelope_Invalid(t *testing.T) {
	hash := `"0x0000000000000000000000000000000000000000000000000000000000000001"`
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"unknown type", `{"type":"transfer","tx_hash":` + hash + `,"data":{}}`},
		{"short hash", `{"type":"sync","tx_hash":"0x01","data":{}}`},
		{"negative block", `{"type":"sync","block":-1,"tx_hash":` + hash + `,"data":{}}`},
		{"missing data", `{"type":"sync","tx_hash":` + hash + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.raw))
			require.ErrorIs(t, err, storage.ErrInvalidInput)
		})
	}
}

func TestParseEnvelope_ExcludeWithoutTxHash(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"exclude","block":50,"data":{"token":"0x01"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeExclude, env.Type)
	assert.Equal(t, "", env.TxHash)

	_, err = ParseEnvelope([]byte(`{"type":"exclude","tx_hash":"0x01","data":{"token":"0x01"}}`))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
