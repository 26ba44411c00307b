package main

import "github.com/geocovid/geocovid/internal/cli"

func main() {
	cli.Execute()
}
