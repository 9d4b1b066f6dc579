package main

import "github.com/staex-io/did-provisioner/cmd"

func main() {
	cmd.Execute()
}
