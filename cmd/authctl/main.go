package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/authctl"
)

func main() {
	app := authctl.New(os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	os.Exit(app.Run(context.Background(), os.Args[1:]))
}
