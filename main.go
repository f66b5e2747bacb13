package main

import (
	"github.com/sidkik/configsync/cmd"
	"github.com/sidkik/configsync/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
