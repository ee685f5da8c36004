package main

import "github.com/launchkit/saas-starter-kit/cmd"

func main() {
	cmd.Execute()
}
