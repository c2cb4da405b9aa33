package main

import "github.com/HaydarovAkbar/HikVision/cmd"

func main() {
	cmd.Execute()
}
