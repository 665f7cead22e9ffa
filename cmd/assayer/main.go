// Command assayer is the compliance assessment backend CLI.
package main

import "github.com/evigdal/assayer/internal/cli"

func main() {
	cli.Execute()
}
