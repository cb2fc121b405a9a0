/*
towerroot rebuilds a weighted tree from an unordered list of node lines and
reports its root.

Each input line has the form

	name (weight) [-> child, child, ...]

Usage:

	towerroot <command> [arguments]

Commands:

	towerroot sort FILE     Print the leaf-to-root order
	towerroot root FILE     Print only the root
	towerroot check FILE    Validate that FILE describes a single tree
	towerroot serve         Run the HTTP service

Use "-" as FILE to read standard input.
*/
package main

import (
	"os"

	"github.com/gyaneshwarpardhi/towerroot/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
