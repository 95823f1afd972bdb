package main

import (
	"workorder-invoicer/cmd/invoicer/commands"
	"workorder-invoicer/pkg/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
