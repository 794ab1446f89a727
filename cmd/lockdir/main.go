package main

import "github.com/jathurchan/lockdir/internal/cli"

func main() {
	cli.Execute()
}
