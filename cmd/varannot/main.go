package main

import "github.com/vietddude/varannot/internal/cli"

func main() {
	cli.Execute()
}
