// Command solana-validator-switch drives ultra-fast identity switches
// between paired Solana validator nodes.
package main

import "github.com/sol-strategies/solana-validator-switch/cmd/solanavalidatorswitch"

func main() {
	solanavalidatorswitch.Execute()
}
