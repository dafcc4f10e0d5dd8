package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/config"
	"github.com/dohr-michael/moodstream/internal/models"
)

// modelRow is one line of the models listing.
type modelRow struct {
	models.ProviderInfo `yaml:",inline"`
	Auth                string `json:"auth" yaml:"auth"`
}

// NewModelsCommand returns the models subcommand.
func NewModelsCommand() *cli.Command {
	return &cli.Command{
		Name:   "models",
		Usage:  "List the configured vision model providers",
		Flags:  []cli.Flag{formatFlag()},
		Action: runModels,
	}
}

func runModels(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rows := modelRows(cfg.Models)
	if ok, err := writeStructured(os.Stdout, cmd.String("format"), rows); ok || err != nil {
		return err
	}
	return printModelRows(os.Stdout, rows)
}

// modelRows lists every provider with where its key would come from. Key
// values are never included.
func modelRows(mc config.ModelsConfig) []modelRow {
	list := models.NewRegistry(mc).List()
	rows := make([]modelRow, 0, len(list))
	for _, info := range list {
		row := modelRow{ProviderInfo: info, Auth: "none"}
		if strings.EqualFold(info.Driver, "ollama") {
			row.Auth = "local"
		} else if cred, err := models.ResolveAuth(mc.Providers[info.Name]); err == nil {
			row.Auth = cred.Source
		} else {
			row.Auth = "missing"
		}
		rows = append(rows, row)
	}
	return rows
}

func printModelRows(w io.Writer, rows []modelRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No model providers configured. Run `moodstream init`.")
		return err
	}
	for _, r := range rows {
		mark := " "
		if r.Default {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "%s %-16s %-32s %s\n", mark, r.Name, r.Label(), r.Auth); err != nil {
			return err
		}
	}
	return nil
}
