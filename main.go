package main

import "github.com/lukman83/mercari-shopper/cmd"

func main() {
	cmd.Execute()
}
