package main

import "github.com/apexwatch/face-enroll/cmd"

func main() {
	cmd.Execute()
}
