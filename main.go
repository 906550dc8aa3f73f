package main

import "github.com/zalepa/crashmap/cmd"

func main() {
	cmd.Execute()
}
