package main

import "github.com/driftlab/newsletter-service/cmd"

func main() {
	cmd.Execute()
}
