package main

import (
	"fmt"
	"os"

	"github.com/stemyke/node-backend-sub000/cmd/assetd/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
