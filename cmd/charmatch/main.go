// Command charmatch reads characters from the camera with a trained
// reference set.
package main

import "charvision/internal/cli"

func main() {
	cli.Execute(cli.Standalone(cli.NewMatchCmd(), "charmatch"))
}
