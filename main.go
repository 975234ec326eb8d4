package main

import "github.com/strandsim/strand/cmd"

func main() {
	cmd.Execute()
}
