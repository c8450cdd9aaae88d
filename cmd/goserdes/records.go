package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/format"
)

// generate loads every file into a fresh engine.
func (a *app) generate(ctx context.Context, files, patchFiles []string) (*goserdes.Engine, goserdes.Summary, error) {
	if err := a.requireManifest(); err != nil {
		return nil, nil, err
	}
	e, err := a.engine()
	if err != nil {
		return nil, nil, err
	}
	patches := make([]goserdes.Patch, 0, len(patchFiles))
	for _, p := range patchFiles {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, err
		}
		patches = append(patches, goserdes.Patch(b))
	}
	total := goserdes.Summary{}
	for _, f := range files {
		sum, err := e.GenerateFromFile(ctx, f, patches...)
		if err != nil {
			return nil, nil, err
		}
		for k, s := range sum {
			t := total[k]
			t.Loaded += s.Loaded
			t.Added += s.Added
			total[k] = t
		}
	}
	return e, total, nil
}

// parseAssignments turns k=v pairs into a mapping. Values are read as YAML
// scalars so age=30 compares as a number and send_ads=true as a boolean.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, raw, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		n, err := format.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func (a *app) loadCmd() *cobra.Command {
	var (
		patches []string
		dump    string
	)
	cmd := &cobra.Command{
		Use:   "load FILE...",
		Short: "Build records from documents and print the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, sum, err := a.generate(cmd.Context(), args, patches)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(sum))
			for k := range sum {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				fmt.Fprintf(a.stderr, "%s loaded=%d added=%d\n", a.style.kind(k), sum[k].Loaded, sum[k].Added)
			}
			text, err := e.Dump(dump)
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, text)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&patches, "patch", "p", nil, "JSON Patch or JSON Merge Patch file applied before generation (repeatable)")
	cmd.Flags().StringVarP(&dump, "dump", "d", "yaml", "output format")
	return cmd
}

type selectFlags struct {
	kind  string
	eq    []string
	where string
}

func (s *selectFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.kind, "kind", "k", "", "kind name")
	cmd.Flags().StringArrayVar(&s.eq, "eq", nil, "field=value filter (repeatable)")
	cmd.Flags().StringVarP(&s.where, "where", "w", "", "boolean expression over record fields")
	_ = cmd.MarkFlagRequired("kind")
}

// records selects the records of s.kind matching every --eq pair and the
// --where expression.
func (s *selectFlags) records(e *goserdes.Engine) ([]*goserdes.Record, error) {
	if _, ok := e.Catalog().Lookup(s.kind); !ok {
		return nil, fmt.Errorf("%w: %s", goserdes.ErrUnknownKind, s.kind)
	}
	q, err := parseAssignments(s.eq)
	if err != nil {
		return nil, err
	}
	recs := e.Store().Filter(s.kind, goserdes.Query(q))
	if s.where == "" {
		return recs, nil
	}
	pred, err := goserdes.CompileWhere(s.where)
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		ok, err := pred.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (a *app) queryCmd() *cobra.Command {
	var (
		sel    selectFlags
		get    bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "query FILE...",
		Short: "Print the records of a kind matching a filter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := a.generate(cmd.Context(), args, nil)
			if err != nil {
				return err
			}
			recs, err := sel.records(e)
			if err != nil {
				return err
			}
			if get {
				switch len(recs) {
				case 0:
					return fmt.Errorf("%w: %s", goserdes.ErrNotFound, sel.kind)
				case 1:
				default:
					return fmt.Errorf("%w: %s matched %d records", goserdes.ErrAmbiguous, sel.kind, len(recs))
				}
			}
			list := make([]any, len(recs))
			for i, r := range recs {
				list[i] = r.Fields()
			}
			text, err := e.Formats().DumpString(output, map[string]any{sel.kind: list})
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, text)
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().BoolVar(&get, "get", false, "fail unless exactly one record matches")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format")
	return cmd
}

func (a *app) renderCmd() *cobra.Command {
	var (
		sel  selectFlags
		vars []string
	)
	cmd := &cobra.Command{
		Use:   "render FILE...",
		Short: "Render the matching records of a kind with its template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := a.generate(cmd.Context(), args, nil)
			if err != nil {
				return err
			}
			extra, err := parseAssignments(vars)
			if err != nil {
				return err
			}
			recs, err := sel.records(e)
			if err != nil {
				return err
			}
			for _, r := range recs {
				out, err := e.Render(cmd.Context(), r, extra)
				if err != nil {
					return err
				}
				fmt.Fprint(a.stdout, out)
				if !strings.HasSuffix(out, "\n") {
					fmt.Fprintln(a.stdout)
				}
			}
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringArrayVar(&vars, "var", nil, "extra template value key=value (repeatable)")
	return cmd
}

func (a *app) roundtripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip FILE",
		Short: "Check that records re-serialize to the document they came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireManifest(); err != nil {
				return err
			}
			e, err := a.engine()
			if err != nil {
				return err
			}
			rep, err := e.RoundTrip(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rep.Equal {
				fmt.Fprintf(a.stdout, "%s %s (%s)\n", a.style.ok("equal"), args[0], rep.Format)
				return nil
			}
			fmt.Fprintf(a.stdout, "%s %s (%s)\n", a.style.bad("differs"), args[0], rep.Format)
			for _, line := range strings.SplitAfter(rep.Diff, "\n") {
				switch {
				case strings.HasPrefix(line, "-"):
					fmt.Fprint(a.stdout, a.style.removed(line))
				case strings.HasPrefix(line, "+"):
					fmt.Fprint(a.stdout, a.style.added(line))
				default:
					fmt.Fprint(a.stdout, line)
				}
			}
			return errRoundTrip
		},
	}
}

var errRoundTrip = errors.New("round trip changed the document")
