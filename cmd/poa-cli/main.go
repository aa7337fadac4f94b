package main

import "github.com/koyahness/Proof-of-Attendance-POA-mini-app/cmd/poa-cli/cmd"

func main() {
	cmd.Execute()
}
