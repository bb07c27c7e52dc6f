package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real env vars still win.
	_ = godotenv.Load()
	Execute()
}
