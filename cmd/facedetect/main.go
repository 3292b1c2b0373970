// Command facedetect marks faces and eyes in the camera feed.
package main

import "charvision/internal/cli"

func main() {
	cli.Execute(cli.Standalone(cli.NewFacesCmd(), "facedetect"))
}
