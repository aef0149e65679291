package main

import "github.com/OpenTraceLab/kibuild/cmd/kibuild/cmd"

func main() {
	cmd.Execute()
}
