package main

import "github.com/blockgraph/blockgraph/cmd/blockgraph/cmd"

func main() {
	cmd.Execute()
}
