package main

import "github.com/taskboard/apiserver/cmd"

func main() {
	cmd.Execute()
}
