package main

import "forum/backend/cmd/forumctl/cmd"

func main() {
	cmd.Execute()
}
