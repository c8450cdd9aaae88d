package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	goserdes "github.com/reoring/goserdes"
)

func (a *app) convertCmd() *cobra.Command {
	var (
		to     string
		out    string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "convert SRC --to FORMAT",
		Short: "Convert a document to another format without building records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			src := args[0]
			text, err := e.ConvertFile(cmd.Context(), src, to, goserdes.ConvertOpt{DstFile: out, DryRun: dryRun})
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprint(a.stdout, text)
				if !strings.HasSuffix(text, "\n") {
					fmt.Fprintln(a.stdout)
				}
				return nil
			}
			dst := out
			if dst == "" {
				dst = goserdes.ConvertDestination(src, to)
			}
			fmt.Fprintf(a.stdout, "%s %s -> %s\n", a.style.ok("converted"), src, dst)
			return nil
		},
	}
	cmd.Flags().StringVarP(&to, "to", "t", "", "destination format")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: SRC with the new extension)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the result instead of writing it")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported formats",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			for _, c := range e.Formats().Codecs() {
				line := a.style.kind(c.Name)
				if len(c.Extensions) > 0 {
					line += " (" + strings.Join(c.Extensions, ", ") + ")"
				}
				fmt.Fprintln(a.stdout, line)
			}
			return nil
		},
	}
}
