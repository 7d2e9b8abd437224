// Command fwmerge merges ESP32 bootloader, partition table and application
// images into one flashable binary after a PlatformIO build.
package main

import "github.com/oshokin/fwmerge/cmd/fwmerge/cmd"

func main() {
	cmd.Execute()
}
