package main

import "github.com/KaramelBytes/gpacalc/cmd"

func main() {
	cmd.Execute()
}
