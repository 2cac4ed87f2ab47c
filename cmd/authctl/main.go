package main

import "github.com/aussiebroadwan/agentauth/internal/auth/cli"

func main() {
	cli.Execute()
}
