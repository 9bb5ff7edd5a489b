// Package main implements mxvm, a small virtual machine toolchain: an IR
// parser/linker/validator, a direct interpreter, and an x86_64 Linux
// assembly-text emitter sharing one intermediate representation (spec.md
// §1-§2).
package main

import "os"

func main() {
	os.Exit(RunCLI(os.Args[1:]))
}
