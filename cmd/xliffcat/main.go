package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seglab/xliffcat/internal/api"
	"github.com/seglab/xliffcat/internal/config"
	"github.com/seglab/xliffcat/internal/domain"
	"github.com/seglab/xliffcat/internal/logging"
	"github.com/seglab/xliffcat/internal/mt"
	"github.com/seglab/xliffcat/internal/store"
)

var (
	configPath string
	srcLang    string
	tgtLang    string
	logMode    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xliffcat [xliff file]",
		Short: "Segment editing backend for XLIFF 2.0 documents",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&srcLang, "src", "", "source language override")
	rootCmd.PersistentFlags().StringVar(&tgtLang, "tgt", "", "target language override")
	rootCmd.PersistentFlags().StringVar(&logMode, "log", "dev", "log mode (dev or prod)")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(segmentsCmd())
	rootCmd.AddCommand(saveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(mtCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(exportTranslationsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(xliffFile string) (*store.Store, *logging.Logger, error) {
	log, err := logging.New(logMode)
	if err != nil {
		return nil, nil, err
	}

	cfg := config.Default()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
	}

	s, err := store.Open(xliffFile, srcLang, tgtLang, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return s, log, nil
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [xliff file]",
		Short: "Open a document, creating its database on first use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer log.Sync()

			size, err := s.Size()
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d segments (%s -> %s)\n", args[0], size, s.SrcLang(), s.TgtLang())
			return nil
		},
	}
}

func segmentsCmd() *cobra.Command {
	var start, count int
	var untranslated bool
	var filterText string

	cmd := &cobra.Command{
		Use:   "segments [xliff file]",
		Short: "List one page of segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer log.Sync()

			filter := domain.Filter{Text: filterText, Untranslated: untranslated}
			segments, err := s.GetSegments(nil, start, count, filter)
			if err != nil {
				return err
			}

			for _, seg := range segments {
				fmt.Printf("%5d  %-10s %-12s %s\n", seg.Index, seg.State,
					seg.File+"/"+seg.Unit+"/"+seg.Segment, truncate(seg.Source, 60))
				if seg.Target != "" {
					fmt.Printf("       %-10s %-12s %s\n", "", "", truncate(seg.Target, 60))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "first segment index")
	cmd.Flags().IntVarP(&count, "count", "n", 50, "number of segments to show")
	cmd.Flags().BoolVar(&untranslated, "untranslated", false, "only untranslated segments")
	cmd.Flags().StringVar(&filterText, "filter", "", "filter by text")
	return cmd
}

func saveCmd() *cobra.Command {
	var confirm bool
	var memory string

	cmd := &cobra.Command{
		Use:   "save [xliff file] [file] [unit] [segment] [translation]",
		Short: "Save a segment's translation",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer log.Sync()

			if memory == "" {
				memory = domain.None
			}
			propagated, err := s.SaveSegment(args[1], args[2], args[3], args[4], confirm, memory)
			if err != nil {
				return err
			}
			for _, p := range propagated {
				if p.Target != "" {
					fmt.Printf("applied %d%% to %s/%s/%s\n", p.Match, p.File, p.Unit, p.Segment)
				} else {
					fmt.Printf("matched %d%% on %s/%s/%s\n", p.Match, p.File, p.Unit, p.Segment)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "mark the segment final and propagate")
	cmd.Flags().StringVar(&memory, "memory", "", "translation memory to store the pair in")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [xliff file]",
		Short: "Show translation progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer log.Sync()

			status, err := s.TranslationStatus()
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d%%)\n", status.Text, status.Percentage)
			return nil
		},
	}
}

func mtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mt [xliff file] [file] [unit] [segment]",
		Short: "Request machine translation for a segment",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer log.Sync()

			provider := mt.NewMyMemory(s.SrcLang(), s.TgtLang())
			matches, err := s.MachineTranslate(args[1], args[2], args[3], provider)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Printf("%s: %s\n", m.Origin, m.Target)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [xliff file]",
		Short: "Export the document with current translations and matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer log.Sync()

			if output == "" {
				output = strings.TrimSuffix(args[0], ".xlf") + ".exported.xlf"
			}
			if err := s.ExportXliff(output); err != nil {
				return err
			}
			fmt.Printf("exported %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path")
	return cmd
}

func exportTranslationsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export-translations [xliff file]",
		Short: "Merge translations back into the original document format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer log.Sync()

			if output == "" {
				return fmt.Errorf("output is required")
			}
			if err := s.ExportTranslations(output); err != nil {
				return err
			}
			fmt.Printf("exported %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [xliff file]",
		Short: "Start the REST API server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openStore(args[0])
			if err != nil {
				return err
			}
			// The server runs until the process exits, keep the store open.

			server := api.New(s, log, addr)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}
