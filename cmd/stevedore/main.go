package main

import "github.com/harborline/stevedore/internal/cmd"

func main() {
	cmd.Execute()
}
