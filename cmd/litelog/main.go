package main

import (
	"os"

	"github.com/danmuck/litelog/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
