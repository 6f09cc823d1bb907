package main

import "github.com/Ncn914491/blockscan/cmd"

func main() {
	cmd.Execute()
}
