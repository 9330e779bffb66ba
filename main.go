package main

import (
	"fmt"
	"os"

	"softetsolutions/mattax/cmd/entities"
	"softetsolutions/mattax/cmd/receipt"
	"softetsolutions/mattax/cmd/report"
	"softetsolutions/mattax/cmd/root"
	"softetsolutions/mattax/cmd/tx"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(tx.Cmd)
	root.Cmd.AddCommand(receipt.Cmd)
	root.Cmd.AddCommand(entities.Cmd)
	root.Cmd.AddCommand(report.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
