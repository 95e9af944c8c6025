package docs

import (
	"context"
	"fmt"
	"os"

	docs "github.com/urfave/cli-docs/v3"
	"github.com/urfave/cli/v3"
)

// BuildCmd renders the CLI reference to markdown, for the pipeline's
// operator documentation.
var BuildCmd = cli.Command{
	Name:    "docs",
	Aliases: []string{"d"},
	Usage:   "Generate CLI documentation",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "Output file for the generated markdown.",
			Value: "cli.md",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		md, err := docs.ToMarkdown(cmd.Root())
		if err != nil {
			return fmt.Errorf("render docs: %w", err)
		}
		fi, err := os.Create(cmd.String("out"))
		if err != nil {
			return err
		}
		defer fi.Close()
		if _, err := fi.WriteString(md); err != nil {
			return err
		}
		return fi.Close()
	},
}
