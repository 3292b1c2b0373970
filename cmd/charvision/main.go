package main

import "charvision/internal/cli"

func main() {
	cli.Execute(cli.NewRootCmd())
}
