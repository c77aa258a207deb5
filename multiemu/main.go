// Package main is the multiemu command line tool.
package main

import (
	"github.com/kay-lambdadelta/multiemu-sub003/mainthread"
	"github.com/kay-lambdadelta/multiemu-sub003/multiemu/cmd"
)

func init() {
	mainthread.Designate()
}

func main() {
	cmd.Execute()
}
