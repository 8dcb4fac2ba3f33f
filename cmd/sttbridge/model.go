package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/sttbridge/internal/config"
	"github.com/leonardotrapani/sttbridge/internal/deps"
	"github.com/leonardotrapani/sttbridge/internal/language"
	"github.com/leonardotrapani/sttbridge/internal/models/whisper"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect local whisper.cpp models",
	}
	cmd.AddCommand(modelListCmd(), modelPathCmd(), languagesCmd())
	return cmd
}

// modelsDir returns transcription.models_dir when set, else the default.
func modelsDir() (string, error) {
	path, err := config.ResolvePath(configPath)
	if _, statErr := os.Stat(path); err == nil && statErr == nil {
		if cfg, err := config.Load(path, nil); err == nil && cfg.Transcription.ModelsDir != "" {
			return cfg.Transcription.ModelsDir, nil
		}
	}
	return whisper.DefaultModelsDir()
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known whisper.cpp models and whether they are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := modelsDir()
			if err != nil {
				return err
			}

			installed := whisper.ListInstalled(dir)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "models directory: %s (%d installed)\n", dir, len(installed))
			for _, m := range whisper.ListModels() {
				mark := "[ ]"
				if slices.Contains(installed, m.ID) {
					mark = "[x]"
				}
				langs := "multilingual"
				if !m.Multilingual {
					langs = "english"
				}
				fmt.Fprintf(out, "  %s %s - %s [%s, %s]\n", mark, m.ID, m.Name, langs, m.Size)
			}

			st := deps.CheckWhisperCli()
			if st.Installed {
				fmt.Fprintf(out, "whisper-cli: %s\n", st.Path)
			} else {
				fmt.Fprintln(out, "whisper-cli: not found in PATH")
			}
			return nil
		},
	}
}

func modelPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <model-id>",
		Short: "Resolve an installed model to its file path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := modelsDir()
			if err != nil {
				return err
			}
			path, err := whisper.Load(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List language codes accepted by transcription.language",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, code := range language.Codes() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", code, language.Label(code))
			}
			return nil
		},
	}
}
