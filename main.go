package main

import "mhurbridge/cmd"

func main() {
	cmd.Execute()
}
