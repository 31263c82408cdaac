package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{nil, KindUnknown},
		{fmt.Errorf("connect: %w", ErrWalletUnavailable), KindWalletUnavailable},
		{fmt.Errorf("switch: %w", ErrNetworkMismatch), KindNetworkMismatch},
		{fmt.Errorf("list: %w", &APIError{Code: 1001, Message: "bad filter"}), KindAPIError},
		{fmt.Errorf("get: %w", ErrRequestTimeout), KindRequestTimeout},
		{fmt.Errorf("plain"), KindUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, KindOf(c.err), "%v", c.err)
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "bad filter", Describe(&APIError{Code: 1001, Message: "bad filter"}))
	assert.Equal(t, "The server returned an error (500).", Describe(&APIError{Code: 500}))
	assert.Equal(t, "Connect your wallet first.", Describe(fmt.Errorf("sell: %w", ErrNoSession)))
	assert.Empty(t, Describe(nil))
}
