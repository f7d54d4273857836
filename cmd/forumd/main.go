package main

import "forum/backend/cmd/forumd/cmd"

func main() {
	cmd.Execute()
}
