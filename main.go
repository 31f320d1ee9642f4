package main

import (
	"os"

	"github.com/felipemart/baseprojeto/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
