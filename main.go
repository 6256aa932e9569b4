package main

import "github.com/mgreenly/nu-agent/cmd"

func main() {
	cmd.Execute()
}
