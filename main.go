package main

import "github.com/arctir/ksched/cmd"

func main() {
	cmd.SetupCommands()
}
