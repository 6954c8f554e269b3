package main

import (
	"github.com/joho/godotenv"

	"vidsum/cmd"
)

func main() {
	// Credentials usually live in a .env file during development; a missing
	// file just means the environment is already set.
	godotenv.Load()

	cmd.Execute()
}
