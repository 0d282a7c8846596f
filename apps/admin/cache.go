package main

import (
	"github.com/urfave/cli/v2"

	"github.com/trezcool/matokeo/storage/cache"
)

func (cl *commandLine) cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "manage the app cache",
		Subcommands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "drop every cached entry of the disk or redis backend",
				Action: func(c *cli.Context) error {
					// the memory store belongs to the API process
					if cl.cacheBackend == cache.BackendMemory || cl.cacheBackend == "" {
						cl.printf("the %s cache backend lives in the API process, nothing cleared\n", cache.BackendMemory)
						return nil
					}
					if err := cl.cache.Clear(c.Context); err != nil {
						return err
					}
					cl.printf("%s cache cleared\n", cl.cacheBackend)
					return nil
				},
			},
		},
	}
}
