package main

import "github.com/agentic-research/bundledeps/cmd"

func main() {
	cmd.Execute()
}
