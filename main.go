// The main package for the pricescout executable.
package main

import "pricescout/cmd"

func main() {
	cmd.Execute()
}
