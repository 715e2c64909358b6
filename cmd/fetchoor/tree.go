package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/fetchoor/pkg/reader"
)

var (
	treeReader    string
	treeContainer string
)

var treeCmd = &cobra.Command{
	Use:   "tree [PREFIX]",
	Short: "List every file below a prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().StringVar(&treeReader, "reader", "", "name of the configured reader")
	treeCmd.Flags().StringVar(&treeContainer, "container", "",
		"bucket, repository or sub-directory (overrides the reader default)")

	_ = treeCmd.MarkFlagRequired("reader")
}

func runTree(cmd *cobra.Command, args []string) error {
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

	rd, err := registry.Get(treeReader)
	if err != nil {
		return err
	}

	var prefix string
	if len(args) == 1 {
		prefix = args[0]
	}

	listing, err := rd.ListTree(ctx, prefix, readOptionsFromFlags(cmd, treeContainer)...)
	if err != nil {
		return err
	}

	paths, err := listing.Result()
	if err != nil {
		return fmt.Errorf("listing not supported by backend %s: %w", rd.Backend(), err)
	}

	for _, p := range paths {
		fmt.Fprintln(os.Stdout, p)
	}

	return nil
}
