package aa

import (
	"github.com/ethereum/go-ethereum/common"
)

var (
	// EntryPoint v0.7, same address on every chain it is deployed to.
	EntrypointAddress = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
	factoryAddress    = common.HexToAddress("0x29adA1b5217242DEaBB142BC3b1bCfFdd56008e7")
)

// Well-known selectors for the account, factory and EntryPoint surfaces.
var (
	executeSelector       = [4]byte{0xb6, 0x1d, 0x27, 0xf6} // execute(address,uint256,bytes)
	executeBatchSelector  = [4]byte{0x47, 0xe1, 0xda, 0x2a} // executeBatch(address[],uint256[],bytes[])
	createAccountSelector = [4]byte{0x5f, 0xbf, 0xb9, 0xcf} // createAccount(address,uint256)
	getNonceSelector      = [4]byte{0x35, 0x56, 0x7e, 0x1a} // EntryPoint getNonce(address,uint192)
	accountNonceSelector  = [4]byte{0xd0, 0x87, 0xd2, 0x88} // account getNonce()
	getDepositSelector    = [4]byte{0xc3, 0x99, 0xec, 0x88} // account getDeposit()
	errorStringSelector   = [4]byte{0x08, 0xc3, 0x79, 0xa0} // Error(string)
)

func SetFactoryAddress(address common.Address) {
	factoryAddress = address
}

func GetFactoryAddress() common.Address {
	return factoryAddress
}

func SetEntrypointAddress(address common.Address) {
	EntrypointAddress = address
}
