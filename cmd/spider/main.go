package main

import cmd "github.com/rohmanhakim/site-spider/internal/cli"

func main() {
	cmd.Execute()
}
