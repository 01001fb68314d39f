package main

import "github.com/askdesk/backend/internal/cli"

func main() {
	cli.Execute()
}
