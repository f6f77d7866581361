package main

import "wattmon/cmd"

func main() {
	cmd.Execute()
}
