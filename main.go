package main

import "github.com/theirongolddev/exptrack/cmd"

func main() {
	cmd.Execute()
}
