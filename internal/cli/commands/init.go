package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/semlayer/semlayer/internal/cli/config"
)

// initFile is the document `semlayer init` writes
type initFile struct {
	Source      initSource `yaml:"source"`
	Annotations struct {
		File string `yaml:"file,omitempty"`
	} `yaml:"annotations"`
	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`
	Redis struct {
		Addr string `yaml:"addr,omitempty"`
		Key  string `yaml:"key"`
	} `yaml:"redis"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

type initSource struct {
	Kind       string `yaml:"kind"`
	ModelsFile string `yaml:"models_file,omitempty"`
	DSN        string `yaml:"dsn,omitempty"`
	Driver     string `yaml:"driver,omitempty"`
	Schema     string `yaml:"schema,omitempty"`
}

func defaultInitFile() initFile {
	var f initFile
	f.Source = initSource{Kind: config.SourceModels, ModelsFile: "models.yml"}
	f.Annotations.File = "annotations.yml"
	f.Output.Path = "semantic_layer.json"
	f.Redis.Key = "semlayer:layer"
	f.Server.Addr = ":8080"
	f.Log.Level = "info"
	return f
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	var (
		yes   bool
		force bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a semlayer.yml config file",
		Long: `Create a semlayer.yml config file in the current directory.

Prompts for the model source and output locations unless --yes is given,
in which case the defaults are written (YAML model file source).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(dir, config.FileName)
			if config.Exists(dir) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			file := defaultInitFile()
			if !yes {
				if err := promptInitFile(&file); err != nil {
					return err
				}
			}

			if err := writeInitFile(path, file); err != nil {
				return err
			}

			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "write defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the config file to")

	return cmd
}

func promptInitFile(file *initFile) error {
	kinds := []string{config.SourceModels, config.SourcePostgres, config.SourceSQLite}
	if err := survey.AskOne(&survey.Select{
		Message: "Where do models come from?",
		Options: kinds,
		Default: file.Source.Kind,
	}, &file.Source.Kind); err != nil {
		return err
	}

	switch file.Source.Kind {
	case config.SourceModels:
		if err := survey.AskOne(&survey.Input{
			Message: "Model file:",
			Default: file.Source.ModelsFile,
		}, &file.Source.ModelsFile, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	default:
		file.Source.ModelsFile = ""
		if err := survey.AskOne(&survey.Input{
			Message: "Database DSN:",
		}, &file.Source.DSN, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if file.Source.Kind == config.SourcePostgres {
			file.Source.Driver = "pgx"
			file.Source.Schema = "public"
			if err := survey.AskOne(&survey.Select{
				Message: "Driver:",
				Options: []string{"pgx", "postgres"},
				Default: file.Source.Driver,
			}, &file.Source.Driver); err != nil {
				return err
			}
		}
	}

	questions := []*survey.Question{
		{
			Name:   "annotations",
			Prompt: &survey.Input{Message: "Annotation file (blank for none):", Default: file.Annotations.File},
		},
		{
			Name:     "output",
			Prompt:   &survey.Input{Message: "Output path:", Default: file.Output.Path},
			Validate: survey.Required,
		},
		{
			Name:   "redis",
			Prompt: &survey.Input{Message: "Redis address to publish to (blank for none):"},
		},
	}
	answers := struct {
		Annotations string `survey:"annotations"`
		Output      string `survey:"output"`
		Redis       string `survey:"redis"`
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	file.Annotations.File = answers.Annotations
	file.Output.Path = answers.Output
	file.Redis.Addr = answers.Redis
	return nil
}

func writeInitFile(path string, file initFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("directory %s does not exist", filepath.Dir(path))
		}
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
