// Package main is the entry point for the groundskeeper CLI.
package main

import "groundskeeper.dev/pkg/groundskeeper/cmd"

func main() {
	cmd.Execute()
}
