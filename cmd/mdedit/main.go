package main

import (
	"fmt"
	"os"

	"mdedit/internal/app"
)

func main() {
	application := app.New()
	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mdedit failed: %v\n", err)
		os.Exit(1)
	}
}
