/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/server"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data to object storage",
}

var exportTodosCmd = &cobra.Command{
	Use:   "todos",
	Short: "Write every todo, with its owner, to the configured bucket as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		ctx := cmd.Context()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		if objects == nil {
			return services.ErrExportUnavailable
		}
		defer objects.Close()

		repos, err := server.OpenRepositories(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = repos.Close(context.Background())
		}()

		result, err := services.NewExportService(repos.Todos, objects).ExportTodos(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d todos to %s/%s\n", result.Count, result.Bucket, result.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportTodosCmd)
}
