package main

import "github.com/ShanmugamRamanathan/YouTube-Anchor/cmd"

func main() {
	cmd.Execute()
}
