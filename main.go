package main

import "github.com/lepinkainen/coverspectrum/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
