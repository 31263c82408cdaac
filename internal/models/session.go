package models

// WalletSession is the live association between the client and a wallet account.
// Signer is set only while Connected on the configured chain.
type WalletSession struct {
	ChainID   uint64
	Account   string
	Connected bool
	Provider  Provider
	Signer    Signer
}

func (s WalletSession) HasSigner() bool {
	return s.Connected && s.Signer != nil
}
