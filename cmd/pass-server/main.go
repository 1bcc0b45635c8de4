package main

import "github.com/bitloom/mobile-barcode-pass/cmd/pass-server/cmd"

func main() {
	cmd.Execute()
}
