package main

import (
	"github.com/findy-network/findy-alice/cmd"
)

func main() {
	cmd.Execute()
}
