package model

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SmartWallet is the record of one counterfactual or deployed smart account.
// Values are immutable snapshots: updates produce a new value that replaces
// the stored one, never an in-place mutation.
type SmartWallet struct {
	Owner      common.Address `json:"owner"`
	Address    common.Address `json:"address"`
	Factory    common.Address `json:"factory"`
	Salt       *big.Int       `json:"salt"`
	ChainID    *big.Int       `json:"chain_id"`
	IsDeployed bool           `json:"is_deployed"`
	CreatedAt  time.Time      `json:"created_at"`
	IsHidden   bool           `json:"is_hidden,omitempty"`
}

func (w *SmartWallet) ToJSON() ([]byte, error) {
	return json.Marshal(w)
}

func (w *SmartWallet) FromStorageData(body []byte) error {
	return json.Unmarshal(body, w)
}

// WithDeployed returns a copy with the deployment flag set. The flag only
// ever flips to true, after a receipt confirms inclusion.
func (w *SmartWallet) WithDeployed() *SmartWallet {
	next := *w
	next.Salt = cloneBig(w.Salt)
	next.ChainID = cloneBig(w.ChainID)
	next.IsDeployed = true
	return &next
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// User is an owner EOA together with its default smart account.
type User struct {
	Address             common.Address
	SmartAccountAddress *common.Address
}

// ToSmartWallet returns the wallet record representing this user's default
// wallet.
func (u *User) ToSmartWallet() *SmartWallet {
	w := &SmartWallet{
		Owner: u.Address,
		Salt:  big.NewInt(0),
	}
	if u.SmartAccountAddress != nil {
		w.Address = *u.SmartAccountAddress
	}
	return w
}
