// main is the entry point for the worktally CLI.
package main

import (
	"github.com/huangsam/worktally/cmd"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/datastore"
)

func main() {
	cmd.SetStoreManager(datastore.Manager)
	err := cmd.Execute()
	datastore.CloseStore()
	if err != nil {
		contract.LogFatal("Error starting CLI", err)
	}
}
