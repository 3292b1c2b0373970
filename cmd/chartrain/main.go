// Command chartrain labels the glyphs of a training sheet and saves the
// classifications and images files used by charmatch.
package main

import "charvision/internal/cli"

func main() {
	cli.Execute(cli.Standalone(cli.NewTrainCmd(), "chartrain"))
}
