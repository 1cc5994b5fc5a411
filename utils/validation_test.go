package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivepay/hivepay/types"
)

func TestParseAmountString(t *testing.T) {
	amt, cur, ok := ParseAmountString("12.345 HBD")
	require.True(t, ok)
	assert.Equal(t, "12.345", amt.String())
	assert.Equal(t, types.CurrencyHBD, cur)

	amt, cur, ok = ParseAmountString("  1.000   hive ")
	require.True(t, ok)
	assert.Equal(t, "1", amt.String())
	assert.Equal(t, types.CurrencyHive, cur)
}

func TestParseAmountStringRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "12.345", "HBD", "abc HBD", "   "} {
		_, _, ok := ParseAmountString(s)
		assert.False(t, ok, "expected %q to be rejected", s)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := types.Config{
		ReceiveAccount: "shop",
		RPCNodeURL:     "https://api.hive.blog",
	}.Defaulted()
	require.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfigMissingAccount(t *testing.T) {
	cfg := types.Config{RPCNodeURL: "https://api.hive.blog"}.Defaulted()

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigMissing, types.ErrorCode(err))
	assert.Contains(t, err.Error(), "ReceiveAccount")
}

func TestValidateConfigBadRPCURL(t *testing.T) {
	cfg := types.Config{ReceiveAccount: "shop", RPCNodeURL: "not a url"}.Defaulted()

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigMissing, types.ErrorCode(err))
}
