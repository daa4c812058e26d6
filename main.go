package main

import "github.com/modalsource/postal/cmd"

func main() {
	cmd.Execute()
}
