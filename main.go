package main

import "github.com/jonchampaigne/ScarSignal/cmd"

func main() {
	cmd.Execute()
}
