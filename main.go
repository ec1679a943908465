package main

import (
	"github.com/avocetlabs/walletcore/cmd"
)

func main() {
	cmd.Execute()
}
