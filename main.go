package main

import "github.com/bmlt-enabled/mayo-server/cmd"

func main() {
	cmd.Execute()
}
