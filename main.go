package main

import "github.com/metal-toolbox/snatt/cmd"

func main() {
	cmd.Execute()
}
