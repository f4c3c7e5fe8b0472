package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgivc/mediafetch/internal/app"
)

func main() {
	cfgFileName := flag.String("c", "config.yml", "Path to config file")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: mediafetch [-c config.yml] records.json")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("Received termination signal. Shutting down...")
		cancel()
	}()

	app := app.New(*cfgFileName)
	app.Start()

	res, err := app.Run(ctx, flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "mediafetch: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Done: %d files, %d errors\n", len(res.Files), len(res.Errors))
	for _, e := range res.Errors {
		fmt.Printf("  error: %s\n", e)
	}

	if !res.Success {
		os.Exit(1)
	}
}
