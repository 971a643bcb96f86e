package main

import (
	"flag"

	"github.com/wafleet/wafleet/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	workdirFlag := flag.String("workdir", "", "working directory (default ~/.wafleet)")
	configFlag := flag.String("config", "", "config file path (default <workdir>/config.toml)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{
			WorkDir:    *workdirFlag,
			ConfigPath: *configFlag,
		}),
	)

	app.Run()
}
