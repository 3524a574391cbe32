package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/clipforge/internal/adapter/process"
	"github.com/bnema/clipforge/internal/adapter/toolchain"
	"github.com/bnema/clipforge/internal/domain"
)

const checkTimeout = 15 * time.Second

func newCheckCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report which external tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			tools := toolsFromConfig(cfg)
			locator := toolchain.NewLocator(cfg.ToolsDir, process.NewRunner())

			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()
			report := toolchain.NewChecker(locator, tools).Check(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Tool", "Component", "Installed", "Path"}, checkRows(report, locator.Resolve(tools)), nil))
			return nil
		},
	}
}

func checkRows(report domain.ToolReport, tools toolchain.Tools) [][]string {
	fetchPath := tools.FetchTool
	if tools.FetchInterpreter != "" {
		fetchPath = tools.FetchInterpreter + " -m " + tools.FetchModule
	}
	return [][]string{
		{"downloadTool", "yt-dlp", yesNo(report.DownloadTool), fetchPath},
		{"fetchLib", "yt-dlp module", yesNo(report.FetchLib), ""},
		{"filterTool", "ffmpeg", yesNo(report.FilterTool), tools.FFmpeg},
		{"probeTool", "ffprobe", yesNo(report.ProbeTool), tools.FFprobe},
		{"transcodeTool", "HandBrakeCLI", yesNo(report.TranscodeTool), tools.HandBrake},
	}
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
