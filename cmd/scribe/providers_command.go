package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/providers"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers and whether each has credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := providers.Statuses(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{status.Name, yesNo(status.Default), yesNo(status.Configured), status.KeyEnv})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Provider", "Default", "Configured", "Key env"},
				rows,
				nil,
			))
			return nil
		},
	}
}
