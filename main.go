package main

import "github.com/gaurav-prasanna/nbdistill/cmd"

func main() {
	cmd.Execute()
}
