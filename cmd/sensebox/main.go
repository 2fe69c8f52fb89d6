package main

import "github.com/thingful/sensebox/cmd/sensebox/commands"

func main() {
	commands.Execute()
}
