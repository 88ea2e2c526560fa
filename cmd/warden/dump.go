package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"warden/internal/source"
	"warden/internal/tree"
	"warden/internal/unitio"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <unit>",
	Short: "Print the resolved tree of a unit document or convert it",
	Long: `dump prints one node per line, indented by depth: kind, name, position,
bound symbol and static type. With --to it re-encodes the document instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().String("to", "", "convert the document (json|msgpack) instead of printing the tree")
	dumpCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
}

func runDump(cmd *cobra.Command, args []string) error {
	to, err := cmd.Flags().GetString("to")
	if err != nil {
		return fmt.Errorf("failed to get to flag: %w", err)
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	doc, _, err := unitio.Read(args[0])
	if err != nil {
		return err
	}

	if to != "" {
		format, err := unitio.ParseFormat(to)
		if err != nil {
			return err
		}
		if output != "" {
			if want, err := unitio.FormatOf(output); err != nil || want != format {
				return fmt.Errorf("output %s does not end in the %s extension", output, format)
			}
			return unitio.Write(output, doc)
		}
		return unitio.Encode(cmd.OutOrStdout(), doc, format)
	}

	fs := source.NewFileSet()
	t, err := doc.Build(fs)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	dumpTree(w, t, fs)
	return w.Flush()
}

// dumpTree writes one line per node:
//
//	      new_class FileInputStream @3:9 -> java.io.FileInputStream.<init> : java.io.FileInputStream
func dumpTree(w io.Writer, t *tree.Tree, fs *source.FileSet) {
	t.Walk(func(id tree.NodeID) bool {
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", t.Depth(id)))
		b.WriteString(t.Kind(id).String())
		if name := t.Name(id); name != "" {
			b.WriteString(" ")
			b.WriteString(name)
		}
		if sp := t.Span(id); fs.Get(sp.File) != nil {
			start, _ := fs.Resolve(sp)
			fmt.Fprintf(&b, " @%d:%d", start.Line, start.Col)
		}
		if sym := t.Symbol(id); sym != nil && sym.QualifiedName != "" {
			b.WriteString(" -> ")
			b.WriteString(sym.QualifiedName)
		}
		if typ := t.TypeQualifiedName(id); typ != "" {
			b.WriteString(" : ")
			b.WriteString(typ)
		}
		b.WriteString("\n")
		_, _ = io.WriteString(w, b.String())
		return true
	})
}
