package main

import "github.com/atikulmunna/tailview/internal/cmd"

func main() {
	cmd.Execute()
}
