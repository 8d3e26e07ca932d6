package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/refs"
)

func bindLocalFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file-or-dir>...",
		Short: "Catalog assets and read their embedded metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return err
				}
				if info.IsDir() {
					sum, err := a.engine.ImportDir(cmd.Context(), arg)
					if err != nil {
						return err
					}
					if err := printJSON(cmd.OutOrStdout(), sum); err != nil {
						return err
					}
					continue
				}
				rec, err := a.engine.ImportAsset(cmd.Context(), arg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", rec.Path)
			}
			return nil
		},
	}
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <field> <value> <row>...",
		Short: "Set one field on catalog rows",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := catalog.ParseField(args[0])
			if err != nil {
				return err
			}
			rows := make([]int, 0, len(args)-2)
			for _, s := range args[2:] {
				row, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("invalid row %q: %w", s, err)
				}
				rows = append(rows, row)
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			committed, err := a.engine.EditField(cmd.Context(), rows, field, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %q\n", field, committed)
			return nil
		},
	}
}

func newCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Write pending catalog edits back to the asset files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			sum, err := a.engine.CommitPending(cmd.Context())
			if perr := printJSON(cmd.OutOrStdout(), sum); perr != nil {
				return perr
			}
			return err
		},
	}
}

type status struct {
	Records    int                `json:"records"`
	Pending    []string           `json:"pending"`
	References int                `json:"references"`
	Missing    []missingReference `json:"missing_references,omitempty"`
}

type missingReference struct {
	Path string   `json:"path"`
	IDs  []string `json:"ids"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog size, pending files and unresolved references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			st := status{
				Records:    a.engine.Len(),
				Pending:    a.engine.Pending(),
				References: len(a.engine.References()),
			}
			for _, m := range a.engine.MissingReferences() {
				st.Missing = append(st.Missing, missingReference{Path: m.Path, IDs: m.IDs})
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

func newRefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs",
		Short: "Manage the bibliographic reference table",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync <file.yaml>",
		Short: "Replace the reference table with an exported bibliography",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			n, err := a.engine.SyncReferences(cmd.Context(), refs.FileSource{Path: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d references\n", n)
			return nil
		},
	})
	return cmd
}
