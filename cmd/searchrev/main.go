package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/ksb256/searchrev/cmd"
)

func main() {
	// SEARCHREV_* settings may come from a .env file next to the binary.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}
	rootCmd := cmd.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
