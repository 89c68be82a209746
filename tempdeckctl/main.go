// tempdeckctl controls an Opentrons Tempdeck from the command line: list
// attached devices, read temperatures, set a target, or deactivate control.
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
