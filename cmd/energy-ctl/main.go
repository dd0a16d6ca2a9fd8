package main

import "github.com/oshokin/energy-sim/cmd/energy-ctl/cmd"

func main() {
	cmd.Execute()
}
