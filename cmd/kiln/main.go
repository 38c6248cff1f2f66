package main

import (
	"github.com/joho/godotenv"

	"github.com/kilnpy/kiln/cmd/kiln/internal"
)

func main() {
	// A missing .env is not an error.
	godotenv.Load()
	internal.Execute()
}
