package main

import "github.com/dyike/pricemove/internal/cli"

func main() {
	cli.Run()
}
