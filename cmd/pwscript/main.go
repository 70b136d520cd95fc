// File: cmd/pwscript/main.go
package main

import "github.com/xkilldash9x/pwscript/cmd"

func main() {
	cmd.Main()
}
