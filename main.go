package main

import "github.com/coursewire/coursewire-go/cli"

func main() {
	cli.Execute()
}
