// Package main provides the pcodebind command-line tool: disassembly
// and architecture-metadata inspection on top of the decoding engine.
package main

func main() {
	Execute()
}
