package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dukex/flowdesk/pkg/cmd"
	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/exchange"
	"github.com/dukex/flowdesk/pkg/log"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/render"
	"github.com/dukex/flowdesk/pkg/services"
	"github.com/urfave/cli/v3"
)

const listLimit = 100

var ErrUnknownRenderFormat = errors.New("render format must be svg or png")

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

// withTemplates opens persistence for the duration of fn.
func withTemplates(ctx context.Context, command *cli.Command, fn func(*services.Template) error) error {
	logger := log.WithModule("flowdesk").With("command", command.Name)

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	return fn(services.NewTemplate(persistence, nil, nil, logger))
}

// formatFor picks the exchange format from an explicit flag or the file extension.
func formatFor(flag, path string) (exchange.Format, error) {
	if flag != "" {
		return exchange.ParseFormat(flag)
	}

	return exchange.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

func output(command *cli.Command) (io.Writer, func() error, error) {
	path := command.String("output")
	if path == "" || path == "-" {
		return command.Root().Writer, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}

func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List stored templates",
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{Name: "type", Usage: "Only templates of this type"},
			&cli.StringFlag{Name: "owner", Usage: "Only templates owned by this user"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withTemplates(ctx, command, func(templates *services.Template) error {
				result, err := templates.List(ctx, services.ListTemplatesRequest{
					Type:  models.TemplateType(command.String("type")),
					Owner: command.String("owner"),
					Limit: listLimit,
				})
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tVERSION\tNODES\tEDGES\tUPDATED")

				for _, t := range result.Templates {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						t.ID, t.Name, t.Type, t.Version, len(t.Nodes), len(t.Edges), t.UpdatedAt.Format("2006-01-02 15:04"))
				}

				return w.Flush()
			})
		},
	}
}

func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a stored template as a JSON or YAML document",
		ArgsUsage: "<template-id>",
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or yaml", Value: "json"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file, - for stdout"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return cli.Exit("template id is required", 2)
			}

			format, err := exchange.ParseFormat(command.String("format"))
			if err != nil {
				return err
			}

			return withTemplates(ctx, command, func(templates *services.Template) error {
				document, err := templates.Export(ctx, id, format)
				if err != nil {
					return err
				}

				w, closeFn, err := output(command)
				if err != nil {
					return err
				}

				if _, err := w.Write(document); err != nil {
					_ = closeFn()

					return err
				}

				return closeFn()
			})
		},
	}
}

func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Store a template document as a new template",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or yaml, default from the file extension"},
			&cli.StringFlag{Name: "owner", Usage: "Owner recorded on the new template", Sources: cli.EnvVars("USER")},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return cli.Exit("file is required", 2)
			}

			format, err := formatFor(command.String("format"), path)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			return withTemplates(ctx, command, func(templates *services.Template) error {
				created, err := templates.Import(ctx, models.SessionContext{UserID: command.String("owner")}, data, format)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(command.Root().Writer, "Imported %q as %s (%d nodes, %d edges)\n",
					created.Name, created.ID, len(created.Nodes), len(created.Edges))

				return err
			})
		},
	}
}

func NewRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Draw a stored template as SVG or PNG",
		ArgsUsage: "<template-id>",
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "svg or png", Value: "svg"},
			&cli.FloatFlag{Name: "zoom", Usage: "Zoom factor", Value: editor.DefaultZoom},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file, - for stdout"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return cli.Exit("template id is required", 2)
			}

			draw := render.SVG

			switch command.String("format") {
			case "svg":
			case "png":
				draw = render.PNG
			default:
				return ErrUnknownRenderFormat
			}

			return withTemplates(ctx, command, func(templates *services.Template) error {
				template, err := templates.FetchByID(ctx, id)
				if err != nil {
					return err
				}

				w, closeFn, err := output(command)
				if err != nil {
					return err
				}

				scene := render.Layout(template.Nodes, template.Edges, editor.Selection{}, command.Float("zoom"))
				if err := draw(w, scene); err != nil {
					_ = closeFn()

					return err
				}

				return closeFn()
			})
		},
	}
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check template documents against the schema and the graph rules",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or yaml, default from the file extension"},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			if command.NArg() == 0 {
				return cli.Exit("at least one file is required", 2)
			}

			failed := 0

			for _, path := range command.Args().Slice() {
				if err := validateFile(command.String("format"), path); err != nil {
					failed++

					_, _ = fmt.Fprintf(command.Root().ErrWriter, "%s: %v\n", path, err)

					continue
				}

				_, _ = fmt.Fprintf(command.Root().Writer, "%s: ok\n", path)
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d documents are invalid", failed, command.NArg()), 1)
			}

			return nil
		},
	}
}

func validateFile(formatFlag, path string) error {
	format, err := formatFor(formatFlag, path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	template, err := exchange.Decode(data, format)
	if err != nil {
		return err
	}

	_, err = editor.Load(template, editor.WithLoadPolicy(editor.LoadStrict))

	return err
}
