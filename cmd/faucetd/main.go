// Command faucetd runs the testnet faucet backend.
//
//	@title			Faucet API
//	@version		1.0
//	@description	Testnet faucet: per-requester cooldown, remote distribution and confirmation polling.
//	@BasePath		/api/v1
package main

import (
	"fmt"
	"os"

	"github.com/tbourn/go-faucet-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "faucetd:", err)
		os.Exit(1)
	}
}
