package main

import "fxrelay/internal/cli"

func main() {
	cli.Execute()
}
