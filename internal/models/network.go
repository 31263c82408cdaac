package models

import "github.com/ethereum/go-ethereum/common/hexutil"

// NativeCurrency describes a chain's gas currency.
type NativeCurrency struct {
	Name     string `json:"name" toml:"name"`
	Symbol   string `json:"symbol" toml:"symbol"`
	Decimals int    `json:"decimals" toml:"decimals"`
}

// NetworkDescriptor is the single network a deployment targets.
type NetworkDescriptor struct {
	ChainID           uint64         `toml:"chain_id"`
	ChainName         string         `toml:"chain_name"`
	RPCURLs           []string       `toml:"rpc_urls"`
	BlockExplorerURLs []string       `toml:"block_explorer_urls"`
	NativeCurrency    NativeCurrency `toml:"native_currency"`
}

// ChainIDHex returns the chain id as a 0x-prefixed hex quantity, e.g. 0xaa36a7.
func (n NetworkDescriptor) ChainIDHex() string {
	return hexutil.EncodeUint64(n.ChainID)
}

// AddChainParameter is the wallet_addEthereumChain payload (EIP-3085).
type AddChainParameter struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
}

// SwitchChainParameter is the wallet_switchEthereumChain payload (EIP-3326).
type SwitchChainParameter struct {
	ChainID string `json:"chainId"`
}

func (n NetworkDescriptor) AddChainParameter() AddChainParameter {
	return AddChainParameter{
		ChainID:           n.ChainIDHex(),
		ChainName:         n.ChainName,
		RPCURLs:           n.RPCURLs,
		BlockExplorerURLs: n.BlockExplorerURLs,
		NativeCurrency:    n.NativeCurrency,
	}
}

// Currency is a display symbol and the number of decimals between base units and display units.
type Currency struct {
	Symbol   string `json:"symbol" toml:"symbol"`
	Decimals int32  `json:"decimals" toml:"decimals"`
}
