package main

import "github.com/bitloom/mobile-barcode-pass/cmd/pass-builder/cmd"

func main() {
	cmd.Execute()
}
