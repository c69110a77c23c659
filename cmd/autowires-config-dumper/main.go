// Command autowires-config-dumper adds a class identifier to the autowires
// list of a YAML dependency configuration file.
//
//	autowires-config-dumper config/autoload/dependencies.yaml example.com/app/mail.Mailer
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/km-arc/di-config/framework/tool"
)

func main() {
	setupLogging()
	os.Exit(runSafely(os.Args[1:], runWithArgs, os.Stderr))
}

func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
}

// runSafely turns a panic in runner into exit status 1.
func runSafely(args []string, runner func([]string) int, errWriter io.Writer) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(errWriter, "panic recovered: %v\n%s", r, debug.Stack())
			exitCode = 1
		}
	}()

	return runner(args)
}

func runWithArgs(args []string) int {
	cmd := tool.NewCobraCommand(&tool.Command{
		ScriptName: filepath.Base(os.Args[0]),
	})
	cmd.SetArgs(args)

	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, tool.ErrInvalidArguments):
		log.Debug().Strs("args", args).Msg("autowires-config-dumper failed")
		return 1
	default:
		log.Error().Err(err).Msg("autowires-config-dumper failed")
		return 1
	}
}
