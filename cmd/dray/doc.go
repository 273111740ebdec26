package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"dray/internal/logger"
	"dray/internal/store"

	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Load and inspect stored JSON documents",
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known documents and when they were last written",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_, s := mustLoad()
		defer s.Close()

		docs, err := s.Keys()
		if err != nil {
			logger.Log.Fatalf("Error listing documents: %v", err)
		}
		updated := make(map[string]string, len(docs))
		for _, d := range docs {
			updated[d.Key] = d.UpdatedAt.Format("2006-01-02 15:04:05")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tUPDATED")
		for _, key := range store.DocumentKeys() {
			at, ok := updated[key]
			if !ok {
				at = "(default)"
			}
			fmt.Fprintf(w, "%s\t%s\n", key, at)
		}
		w.Flush()
	},
}

var docDumpCmd = &cobra.Command{
	Use:   "dump <key>",
	Short: "Print a stored document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := mustLoad()
		defer s.Close()

		raw, err := s.Raw(args[0])
		if err != nil {
			logger.Log.Fatal(err)
		}
		if raw == nil {
			logger.Log.Warnf("%s is not stored; defaults apply.", args[0])
			return
		}
		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			logger.Log.Fatal(err)
		}
		fmt.Println(out.String())
	},
}

var docLoadCmd = &cobra.Command{
	Use:   "load <key> <file>",
	Short: "Replace a document with the contents of a JSON or JSONC file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := mustLoad()
		defer s.Close()

		if err := s.LoadFile(args[0], args[1]); err != nil {
			logger.Log.Fatalf("Load failed: %v", err)
		}
		logger.Log.Infof("✅ Loaded %s from %s", args[0], args[1])
	},
}

func init() {
	docCmd.AddCommand(docListCmd, docDumpCmd, docLoadCmd)
	rootCmd.AddCommand(docCmd)
}
