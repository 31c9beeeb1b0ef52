package main

import (
	"os"

	"github.com/scan-io-git/issue-bridge/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
