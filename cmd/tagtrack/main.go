// ABOUTME: Entry point for the tagtrack CLI
// ABOUTME: Executes the root command and maps errors to a non-zero exit status

package main

import (
	"context"
	"os"
	_ "time/tzdata" // display_timezone must resolve on hosts without a zoneinfo database
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
