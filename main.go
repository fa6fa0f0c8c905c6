package main

import "polybackup/cmd"

func main() {
	cmd.Execute()
}
