package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"studysphere-tracker/internal/app"
	"studysphere-tracker/internal/domain"
)

// NewPassagesCmd groups passage catalog maintenance.
func NewPassagesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passages",
		Short: "Manage the passage catalog",
	}
	cmd.AddCommand(newPassagesImportCmd(configPath))
	cmd.AddCommand(newPassagesListCmd(configPath))
	return cmd
}

func newPassagesImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml|file.json>",
		Short: "Replace the passage catalog from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passages, err := readPassages(args[0])
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			if rt.passages != nil {
				err = rt.passages.UpsertPassages(ctx, passages)
			} else {
				err = app.ImportPassages(ctx, rt.storage, passages)
			}
			if err != nil {
				return err
			}
			if rt.index != nil {
				if err := rt.index.Invalidate(ctx); err != nil {
					rt.logger.Warn("passage index invalidation failed", zap.Error(err))
				}
			}
			rt.logger.Info("passages imported", zap.Int("count", len(passages)), zap.String("file", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d passages\n", len(passages))
			return nil
		},
	}
}

func newPassagesListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the passage catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			passages, err := rt.catalog.Passages(cmd.Context())
			if err != nil {
				return err
			}
			if passages == nil {
				passages = []domain.Passage{}
			}
			return printJSON(cmd.OutOrStdout(), passages)
		},
	}
}

func readPassages(path string) ([]domain.Passage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var passages []domain.Passage
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &passages)
	default:
		err = yaml.Unmarshal(raw, &passages)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, p := range passages {
		if p.ID == "" || p.Subject == "" {
			return nil, fmt.Errorf("%w: passage %d needs id and subject", domain.ErrValidation, i)
		}
	}
	return passages, nil
}
