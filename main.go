package main

import (
	"fmt"
	"os"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
