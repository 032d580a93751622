package main

import (
	"github.com/quantumbio/heartsync/client"
	"github.com/quantumbio/heartsync/internal/config"
	"github.com/quantumbio/heartsync/internal/hrm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// pipelineFlags are the per-command overrides for the heart-rate stage.
type pipelineFlags struct {
	offset      float64
	alpha       float64
	ratioSource string
	ratioOffset float64
}

func registerPipelineFlags(cmd *cobra.Command, f *pipelineFlags) {
	cmd.Flags().Float64Var(&f.offset, "offset", 0, "BPM offset added to every sample (-100..100)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0, "Smoothing factor in (0,1] (default from config)")
	cmd.Flags().StringVar(&f.ratioSource, "ratio-source", "", "Wet/dry source: adjusted or smoothed")
	cmd.Flags().Float64Var(&f.ratioOffset, "ratio-offset", 0, "Wet/dry display offset (-100..100)")
}

// newSource builds the TelemetrySource from the config file, global flags,
// and per-command pipeline overrides. The synthetic variant is selected at
// composition time, never deeper in the call tree.
func newSource(cmd *cobra.Command, log *logrus.Logger, flags *pipelineFlags, synthetic bool) (client.TelemetrySource, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	pipeline := hrm.Config{
		Offset:      cfg.Offset,
		Alpha:       cfg.Smoothing,
		RatioSource: hrm.RatioSource(cfg.RatioSource),
		RatioOffset: cfg.RatioOffset,
	}
	if flags != nil {
		if cmd.Flags().Changed("offset") {
			pipeline.Offset = flags.offset
		}
		if cmd.Flags().Changed("alpha") {
			pipeline.Alpha = flags.alpha
		}
		if cmd.Flags().Changed("ratio-source") {
			pipeline.RatioSource = hrm.RatioSource(flags.ratioSource)
		}
		if cmd.Flags().Changed("ratio-offset") {
			pipeline.RatioOffset = flags.ratioOffset
		}
	}

	if synthetic {
		return client.NewSynthetic(pipeline), nil
	}

	socket, _ := cmd.Flags().GetString("socket")
	if socket == "" {
		socket = cfg.Socket
	}

	return client.New(client.Options{
		SocketPath:   socket,
		ClientName:   "hsctl " + version,
		NoAutoLaunch: !cfg.AutoLaunch,
		Pipeline:     pipeline,
		Logger:       log,
	}), nil
}
