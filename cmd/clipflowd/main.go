package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	if err := run(*configFlag); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	d, cleanup, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-signals:
	case <-d.StopRequested():
	}
	return nil
}
