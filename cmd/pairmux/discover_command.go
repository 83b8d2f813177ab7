package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pairmux/internal/conflict"
	"pairmux/internal/discovery"
	"pairmux/internal/merge"
	"pairmux/internal/pipeline"
)

type discoverView struct {
	Collection      string                      `json:"collection"`
	OutputDir       string                      `json:"output_dir"`
	Binary          string                      `json:"binary,omitempty"`
	BinaryError     string                      `json:"binary_error,omitempty"`
	Tasks           []merge.Task                `json:"tasks"`
	Conflicts       []conflict.Record           `json:"conflicts,omitempty"`
	DiscoveryErrors []*discovery.DiscoveryError `json:"discovery_errors,omitempty"`
}

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "discover <root>",
		Short: "List the merges a run would perform without touching the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg, false)
			if err != nil {
				return err
			}
			p := pipeline.New(cfg, pipeline.WithLogger(logger))

			view := discoverView{}
			if binary, err := p.EnsureAvailable(); err != nil {
				view.BinaryError = err.Error()
			} else {
				view.Binary = binary
			}

			found, err := p.Preview(args[0], outputDir)
			if err != nil {
				return err
			}
			_, conflicts, err := p.Partition(found.Tasks)
			if err != nil {
				return err
			}
			view.Collection = found.CollectionTitle
			view.OutputDir = found.OutputDir
			view.Tasks = found.Tasks
			view.Conflicts = conflicts
			view.DiscoveryErrors = found.Errors

			if jsonOutput {
				return writeJSON(cmd, view)
			}
			renderDiscovery(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output base directory (defaults to paths.output_dir)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON")
	return cmd
}

func renderDiscovery(out io.Writer, view discoverView) {
	fmt.Fprintf(out, "Collection: %s\n", view.Collection)
	fmt.Fprintf(out, "Output:     %s\n", view.OutputDir)
	if view.BinaryError != "" {
		fmt.Fprintf(out, "Muxer:      unavailable (%s)\n", view.BinaryError)
	} else {
		fmt.Fprintf(out, "Muxer:      %s\n", view.Binary)
	}
	fmt.Fprintln(out)

	existing := make(map[string]conflict.Record, len(view.Conflicts))
	for _, record := range view.Conflicts {
		existing[record.Task.OutputPath] = record
	}

	if len(view.Tasks) == 0 {
		fmt.Fprintln(out, "No episodes found")
	} else {
		rows := make([][]string, 0, len(view.Tasks))
		for _, task := range view.Tasks {
			state := "new"
			if record, ok := existing[task.OutputPath]; ok {
				state = "exists (" + formatBytes(record.ExistingOutputSize) + ")"
			}
			rows = append(rows, []string{task.Title, task.Label(), state})
		}
		fmt.Fprintln(out, renderTable([]string{"Episode", "Output", "State"}, rows, nil))
	}

	renderDiscoveryErrors(out, view.DiscoveryErrors)
	fmt.Fprintf(out, "%s, %d with existing output, %d problem(s)\n",
		pluralize(len(view.Tasks), "episode"), len(view.Conflicts), len(view.DiscoveryErrors))
}
