package main

import "github.com/JonMunkholm/rowimport/cmd/rowimport/cmd"

func main() {
	cmd.Execute()
}
