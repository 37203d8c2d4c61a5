package main

import "statuswatch/cmd"

func main() {
	cmd.Execute()
}
