package main

import "github.com/aweris/site/cmd/site/cmd"

func main() {
	cmd.Execute()
}
