package main

import "github.com/maxvaer/rschunter/cmd"

func main() {
	cmd.Execute()
}
