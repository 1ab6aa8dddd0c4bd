package main

import "github.com/bun-ready/bun-ready/cmd"

func main() {
	cmd.Execute()
}
