package main

import (
	"github.com/zenith-chain/node/cmd"
)

func main() {
	cmd.Execute()
}
