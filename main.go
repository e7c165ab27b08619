package main

import "obd-backend/cmd"

func main() {
	cmd.Execute()
}
