package main

import "sysobserve/internal/cli"

func main() {
	cli.Execute()
}
