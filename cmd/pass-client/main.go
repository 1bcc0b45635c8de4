package main

import "github.com/bitloom/mobile-barcode-pass/cmd/pass-client/cmd"

func main() {
	cmd.Execute()
}
