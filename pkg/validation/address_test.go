package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("0x7169D38820dfd117C3FA1f22a697dBA58d90BA06"))
	assert.NoError(t, ValidateAddress("7169d38820dfd117c3fa1f22a697dba58d90ba06"))

	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("0x1234"))
	assert.Error(t, ValidateAddress("0xZZ69D38820dfd117C3FA1f22a697dBA58d90BA06"))
}

func TestValidateAndNormalizeAddress(t *testing.T) {
	addr, err := ValidateAndNormalizeAddress("0X7169D38820DFD117C3FA1F22A697DBA58D90BA06")
	require.NoError(t, err)
	assert.Equal(t, "0x7169d38820dfd117c3fa1f22a697dba58d90ba06", addr)
}

func TestIsZeroAddress(t *testing.T) {
	assert.True(t, IsZeroAddress(""))
	assert.True(t, IsZeroAddress("0x0000000000000000000000000000000000000000"))
	assert.False(t, IsZeroAddress("0x7169d38820dfd117c3fa1f22a697dba58d90ba06"))
}
