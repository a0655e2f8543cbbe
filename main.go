package main

import "github.com/parisxmas/OxiDB/OxiSign/internal/cli"

func main() {
	cli.Execute()
}
