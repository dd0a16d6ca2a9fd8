package main

import "github.com/oshokin/energy-sim/cmd/energy-sim/cmd"

func main() {
	cmd.Execute()
}
