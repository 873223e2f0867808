package main

import "github.com/ridoystarlord/bookingsdb/cmd"

func main() {
	cmd.Execute()
}
