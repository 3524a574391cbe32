package main

import (
	"github.com/spf13/cobra"

	"github.com/bnema/clipforge/config"
	"github.com/bnema/clipforge/internal/adapter/fetcher/ytdlp"
	"github.com/bnema/clipforge/internal/adapter/toolchain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "clipforge",
		Short:         "Fetch, upscale and transcode videos behind an HTTP job API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configFlag)
		if err != nil {
			return nil, err
		}
		if err := logger.SetLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newServeCommand(load))
	rootCmd.AddCommand(newCheckCommand(load))
	rootCmd.AddCommand(newHistoryCommand(load))

	return rootCmd
}

type configLoader func() (*config.Config, error)

func toolsFromConfig(cfg *config.Config) toolchain.Tools {
	return toolchain.Tools{
		FetchTool:        cfg.FetchTool,
		FetchInterpreter: cfg.FetchInterpreter,
		FetchModule:      ytdlp.DefaultModule,
		FFmpeg:           cfg.FFmpeg,
		FFprobe:          cfg.FFprobe,
		HandBrake:        cfg.HandBrake,
	}
}
