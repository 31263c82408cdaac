package blockchain

// ValueIDABI is the ABI of the Value ID marketplace contract: ERC-721
// enumeration plus sale and rental listings.
const ValueIDABI = `[
{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"name":"tokenOfOwnerByIndex","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"index","type":"uint256"}],"name":"tokenByIndex","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"getSaleInfo","outputs":[{"name":"isForSale","type":"bool"},{"name":"price","type":"uint256"},{"name":"receiver","type":"address"},{"name":"payToken","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"getRentalInfo","outputs":[{"name":"isForRent","type":"bool"},{"name":"pricePerPeriod","type":"uint256"},{"name":"maxPeriods","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"},{"name":"payToken","type":"address"}],"name":"listForSale","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"},{"name":"pricePerPeriod","type":"uint256"},{"name":"maxPeriods","type":"uint256"}],"name":"listForRent","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"cancelListing","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"buy","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"},{"name":"periods","type":"uint256"}],"name":"rent","outputs":[],"stateMutability":"payable","type":"function"}
]`

// Contract method names.
const (
	methodBalanceOf           = "balanceOf"
	methodTokenOfOwnerByIndex = "tokenOfOwnerByIndex"
	methodTotalSupply         = "totalSupply"
	methodTokenByIndex        = "tokenByIndex"
	methodOwnerOf             = "ownerOf"
	methodTokenURI            = "tokenURI"
	methodGetSaleInfo         = "getSaleInfo"
	methodGetRentalInfo       = "getRentalInfo"
	methodOwner               = "owner"

	methodListForSale   = "listForSale"
	methodListForRent   = "listForRent"
	methodCancelListing = "cancelListing"
	methodBuy           = "buy"
	methodRent          = "rent"
)
