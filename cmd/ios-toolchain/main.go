package main

import "ios-toolchain/internal/cli"

func main() {
	cli.Execute()
}
