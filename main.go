// main is the entry point for the monoscope CLI.
package main

import (
	"github.com/huangsam/monoscope/cmd"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/iocache"
)

func main() {
	defer iocache.CloseStores()

	if err := cmd.Execute(); err != nil {
		iocache.CloseStores()
		contract.LogFatal("Command failed", err)
	}
}
