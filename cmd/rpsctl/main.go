package main

import "github.com/DoyleJ11/rps-party-backend/internal/cli"

func main() {
	cli.Execute()
}
