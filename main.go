package main

import "github.com/kozaktomas/badge-rename/cmd"

func main() {
	cmd.Execute()
}
