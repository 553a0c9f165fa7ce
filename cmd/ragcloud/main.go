package main

import "ragcloud/internal/cli"

func main() {
	cli.Execute()
}
