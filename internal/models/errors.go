package models

import (
	"errors"
	"fmt"
)

var (
	ErrWalletUnavailable    = errors.New("wallet_unavailable")
	ErrUserRejected         = errors.New("user_rejected")
	ErrNetworkMismatch      = errors.New("network_mismatch")
	ErrChainReadFailure     = errors.New("chain_read_failure")
	ErrTransactionReverted  = errors.New("transaction_reverted")
	ErrMalformedAssetRecord = errors.New("malformed_asset_record")
	ErrRequestTimeout       = errors.New("request_timeout")
	ErrNoSession            = errors.New("no_wallet_session")
)

// APIError is returned by the REST boundary for non-2xx responses and for
// envelopes with success=false.
type APIError struct {
	// Code is the envelope code, or the HTTP status when the body carried none.
	Code    int
	Message string
	// Status is the HTTP status code of the response.
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api_error: code=%d message=%s", e.Code, e.Message)
}

// ErrorKind classifies failures surfaced to the presentation layer.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindWalletUnavailable
	KindUserRejected
	KindNetworkMismatch
	KindChainReadFailure
	KindTransactionReverted
	KindMalformedAssetRecord
	KindAPIError
	KindRequestTimeout
	KindNoSession
)

func (k ErrorKind) String() string {
	switch k {
	case KindWalletUnavailable:
		return "WalletUnavailable"
	case KindUserRejected:
		return "UserRejected"
	case KindNetworkMismatch:
		return "NetworkMismatch"
	case KindChainReadFailure:
		return "ChainReadFailure"
	case KindTransactionReverted:
		return "TransactionReverted"
	case KindMalformedAssetRecord:
		return "MalformedAssetRecord"
	case KindAPIError:
		return "ApiError"
	case KindRequestTimeout:
		return "RequestTimeout"
	case KindNoSession:
		return "NoSession"
	}
	return "Unknown"
}

var kindsBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrWalletUnavailable, KindWalletUnavailable},
	{ErrUserRejected, KindUserRejected},
	{ErrNetworkMismatch, KindNetworkMismatch},
	{ErrChainReadFailure, KindChainReadFailure},
	{ErrTransactionReverted, KindTransactionReverted},
	{ErrMalformedAssetRecord, KindMalformedAssetRecord},
	{ErrRequestTimeout, KindRequestTimeout},
	{ErrNoSession, KindNoSession},
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, s := range kindsBySentinel {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return KindAPIError
	}
	return KindUnknown
}

// Describe returns a message suitable for showing to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindWalletUnavailable:
		return "No wallet was found. Install a wallet extension and try again."
	case KindUserRejected:
		return "The request was rejected in your wallet."
	case KindNetworkMismatch:
		return "Your wallet is connected to the wrong network. Switch networks and try again."
	case KindChainReadFailure:
		return "Could not read data from the blockchain. Please refresh."
	case KindTransactionReverted:
		return "The transaction failed on chain."
	case KindMalformedAssetRecord:
		return "Some asset data could not be displayed."
	case KindAPIError:
		var apiErr *APIError
		errors.As(err, &apiErr)
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("The server returned an error (%d).", apiErr.Code)
	case KindRequestTimeout:
		return "The request timed out. Please refresh."
	case KindNoSession:
		return "Connect your wallet first."
	}
	return "Something went wrong. Please try again."
}
