package main

import (
	"context"
	"os"
)

var server = srv{ctx: context.Background()}

func main() {
	server.loadApp()
	if err := server.app.Run(os.Args); err != nil {
		panic(err)
	}
}
