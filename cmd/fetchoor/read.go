package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/fetchoor/pkg/fetch"
	"github.com/ethpandaops/fetchoor/pkg/fsutil"
	"github.com/ethpandaops/fetchoor/pkg/reader"
)

var (
	readReader      string
	readContainer   string
	readQuiet       bool
	readOutputDir   string
	readOwner       string
	readConcurrency int
)

var readCmd = &cobra.Command{
	Use:   "read PATH...",
	Short: "Read one or more files from a configured reader",
	Long: `Read fetches whole files from a configured reader. A single path
without --output-dir is written to stdout. Otherwise every path is fetched
concurrently and written beneath the output directory, keeping its relative
layout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().StringVar(&readReader, "reader", "", "name of the configured reader")
	readCmd.Flags().StringVar(&readContainer, "container", "",
		"bucket, repository or sub-directory (overrides the reader default)")
	readCmd.Flags().BoolVar(&readQuiet, "quiet", false, "suppress read failure diagnostics")
	readCmd.Flags().StringVar(&readOutputDir, "output-dir", "",
		"directory to write files to (overrides fetch.output_dir)")
	readCmd.Flags().StringVar(&readOwner, "owner", "",
		"UID:GID applied to written files (overrides fetch.owner)")
	readCmd.Flags().IntVar(&readConcurrency, "concurrency", 0,
		"parallel reads (overrides fetch.concurrency)")

	_ = readCmd.MarkFlagRequired("reader")
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := reader.NewRegistry(ctx, log, cfg.Readers)
	if err != nil {
		return fmt.Errorf("building readers: %w", err)
	}

	defer func() {
		if cerr := registry.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close readers")
		}
	}()

	rd, err := registry.Get(readReader)
	if err != nil {
		return err
	}

	opts := readOptionsFromFlags(cmd, readContainer)

	outputDir := cfg.Fetch.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outputDir = readOutputDir
	}

	if len(args) == 1 && outputDir == "" {
		data, err := rd.Read(ctx, args[0], opts...)
		if err != nil {
			return err
		}

		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("writing to stdout: %w", err)
		}

		return nil
	}

	if outputDir == "" {
		return fmt.Errorf("--output-dir is required when reading more than one path")
	}

	owner := cfg.Fetch.Owner
	if cmd.Flags().Changed("owner") {
		owner = readOwner
	}

	ownerCfg, err := fsutil.ParseOwner(owner)
	if err != nil {
		return fmt.Errorf("parsing owner: %w", err)
	}

	fetchCfg := cfg.Fetch
	if cmd.Flags().Changed("concurrency") {
		fetchCfg.Concurrency = readConcurrency
	}

	results, err := fetch.NewFetcher(log, rd, &fetchCfg).FetchAll(ctx, args, opts...)
	if err != nil {
		return fmt.Errorf("fetching: %w", err)
	}

	written, err := fetch.WriteResults(outputDir, results, ownerCfg)
	if err != nil {
		return err
	}

	for _, path := range written {
		log.WithField("file", path).Debug("Wrote file")
	}

	summary := fetch.Summarize(results)

	log.WithFields(logrus.Fields{
		"reader":     readReader,
		"output_dir": outputDir,
		"size":       units.HumanSize(float64(summary.Bytes)),
	}).Info(summary.String())

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d paths failed", summary.Failed, len(results))
	}

	return nil
}

// readOptionsFromFlags maps --container and --quiet to read options. Unset
// flags keep the reader's configured defaults.
func readOptionsFromFlags(cmd *cobra.Command, container string) []reader.ReadOption {
	var opts []reader.ReadOption

	if container != "" {
		opts = append(opts, reader.WithContainer(container))
	}

	if f := cmd.Flags().Lookup("quiet"); f != nil && f.Changed {
		opts = append(opts, reader.WithVerbose(!readQuiet))
	}

	return opts
}
