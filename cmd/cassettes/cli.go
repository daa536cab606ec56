package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/cassettes/internal/catalog"
	"github.com/hpungsan/cassettes/internal/config"
	"github.com/hpungsan/cassettes/internal/db"
	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/logging"
	"github.com/hpungsan/cassettes/internal/mcp"
	"github.com/hpungsan/cassettes/internal/web"
)

const usageLine = "Usage: cassettes <path-to-tapes.db>"

// newCLIApp creates the CLI application with all commands.
// Command output goes to out; errors are returned, not printed.
func newCLIApp(out io.Writer) *cli.App {
	app := &cli.App{
		Name:      "cassettes",
		Usage:     "Catalogue de cassettes vidéo",
		UsageText: "cassettes <path-to-tapes.db>\ncassettes --db <path-to-tapes.db> <command> [options]",
		Version:   Version,
		Writer:    out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Aliases: []string{"d"}, EnvVars: []string{"CASSETTES_DB"}, Usage: "Path to the storage file"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug|info|warn|error"},
		},
		// A bare path serves the web UI.
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				path = c.String("db")
			}
			if path == "" {
				return cli.Exit(usageLine, 1)
			}
			return serve(c, path)
		},
		Commands: []*cli.Command{
			listCmd(),
			showCmd(),
			addCmd(),
			editCmd(),
			deleteCmd(),
			statusCmd(),
			exportCmd(),
			importCmd(),
			serveCmd(),
			mcpCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// session is one opened storage file and the catalog loaded from it.
type session struct {
	cfg *config.Config
	log zerolog.Logger
	db  *db.DB
	cat *catalog.Catalog
}

func (s *session) close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn().Err(err).Msg("failed to close storage file")
	}
}

// openSession loads config, opens and locks the storage file and loads the
// catalog. One-shot commands pass quiet so mutation logs stay out of the way
// unless --log-level asks for them.
func openSession(c *cli.Context, path string, quiet bool) (*session, error) {
	cwd, _ := os.Getwd()
	cfg, err := config.LoadForDB(path, cwd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if quiet {
		level = "warn"
	}
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	log := logging.New(logging.Options{Level: level, Format: cfg.LogFormat})

	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(database.DB, cfg)

	cat, err := catalog.New(c.Context, catalog.NewSQLStorage(database.DB), catalog.Options{
		Logger:     log,
		ExportsDir: catalog.ExportsDir(path),
	})
	if err != nil {
		database.Close()
		return nil, err
	}

	return &session{cfg: cfg, log: log, db: database, cat: cat}, nil
}

// withCatalog opens the storage file named by --db for the duration of fn.
func withCatalog(fn func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		path := c.String("db")
		if path == "" {
			return outputError(errors.NewValidation("storage file path is required (--db or CASSETTES_DB)"))
		}
		s, err := openSession(c, path, true)
		if err != nil {
			return outputError(err)
		}
		defer s.close()
		return fn(c, s)
	}
}

// listCmd creates the list command.
func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List tapes, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Only tapes whose title or label contains this text"},
			&cli.BoolFlag{Name: "json", Usage: "Output JSON instead of a table"},
		},
		Action: withCatalog(func(c *cli.Context, s *session) error {
			f := catalog.NewFilter(s.cat)
			f.SetTerm(c.String("search"))
			items := f.View()
			count := s.cat.Count()

			if c.Bool("json") {
				return outputJSON(c, map[string]any{
					"items":  items,
					"search": f.Term(),
					"count":  count,
					"status": catalog.StatusText(count),
				})
			}

			w := c.App.Writer
			switch {
			case len(items) > 0:
				rows := make([][]string, 0, len(items))
				for _, t := range items {
					rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Title, t.Tape, t.CreatedAtDisplay()})
				}
				fmt.Fprintln(w, renderTable(
					[]string{"ID", "Titre", "Cassette", "Ajouté"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
			case f.Filtering():
				fmt.Fprintf(w, "Aucune cassette ne correspond à « %s ».\n", f.Term())
			default:
				fmt.Fprintln(w, "Le catalogue est vide.")
			}
			fmt.Fprintln(w, catalog.StatusText(count))
			return nil
		}),
	}
}

// showCmd creates the show command.
func showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one tape",
		ArgsUsage: "<id>",
		Action: withCatalog(func(c *cli.Context, s *session) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			t, ok := s.cat.CurrentRecord(id)
			if !ok {
				return outputError(errors.NewNotFound(id))
			}
			return outputJSON(c, t)
		}),
	}
}

// addCmd creates the add command.
func addCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a tape",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Film title"},
			&cli.StringFlag{Name: "tape", Usage: "Cassette label"},
		},
		Action: withCatalog(func(c *cli.Context, s *session) error {
			if err := s.cat.Add(c.Context, c.String("title"), c.String("tape")); err != nil {
				return outputError(err)
			}
			return outputStatus(c, s)
		}),
	}
}

// editCmd creates the edit command. Fields not given keep their current value.
func editCmd() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change a tape's title and/or label",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New film title"},
			&cli.StringFlag{Name: "tape", Usage: "New cassette label"},
		},
		Action: withCatalog(func(c *cli.Context, s *session) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			current, ok := s.cat.CurrentRecord(id)
			if !ok {
				return outputError(errors.NewNotFound(id))
			}

			title, label := current.Title, current.Tape
			if c.IsSet("title") {
				title = c.String("title")
			}
			if c.IsSet("tape") {
				label = c.String("tape")
			}

			if err := s.cat.Edit(c.Context, id, title, label); err != nil {
				return outputError(err)
			}
			return outputStatus(c, s)
		}),
	}
}

// deleteCmd creates the delete command.
func deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently remove a tape",
		ArgsUsage: "<id>",
		Action: withCatalog(func(c *cli.Context, s *session) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			if err := s.cat.Delete(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputStatus(c, s)
		}),
	}
}

// statusCmd creates the status command.
func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Print the number of catalogued tapes",
		Action: withCatalog(func(c *cli.Context, s *session) error {
			fmt.Fprintln(c.App.Writer, s.cat.Status())
			return nil
		}),
	}
}

// exportCmd creates the export command.
func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the catalog to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: exports directory next to the storage file)"},
		},
		Action: withCatalog(func(c *cli.Context, s *session) error {
			output, err := s.cat.Export(c.Context, s.cfg, catalog.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// importCmd creates the import command.
func importCmd() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import tapes from a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Input path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Invalid lines: error|skip"},
		},
		Action: withCatalog(func(c *cli.Context, s *session) error {
			output, err := s.cat.Import(c.Context, s.cfg, catalog.ImportInput{
				Path: c.String("path"),
				Mode: catalog.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(c, output); err != nil {
				return err
			}
			if output.Aborted() {
				return cli.Exit(fmt.Sprintf("[%s] import aborted: %d invalid line(s)", errors.ErrValidation, len(output.Errors)), 1)
			}
			return nil
		}),
	}
}

// serveCmd creates the serve command.
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to listen on (default from config: 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on (default from config: 8070)"},
		},
		Action: func(c *cli.Context) error {
			path := c.String("db")
			if path == "" {
				return cli.Exit(usageLine, 1)
			}
			return serve(c, path)
		},
	}
}

// serve runs the web UI on path until interrupted.
func serve(c *cli.Context, path string) error {
	s, err := openSession(c, path, false)
	if err != nil {
		return outputError(err)
	}
	defer s.close()

	bind, port := s.cfg.WebBind, s.cfg.WebPort
	if c.IsSet("bind") {
		bind = c.String("bind")
	}
	if c.IsSet("port") {
		port = c.Int("port")
	}

	srv, err := web.NewServer(s.cat, web.Options{
		Version: Version,
		Bind:    bind,
		Port:    port,
		Logger:  s.log,
	})
	if err != nil {
		return outputError(errors.NewInternal(err))
	}

	s.log.Info().Str("db", path).Str("status", s.cat.Status()).Msg("catalog loaded")
	if err := web.Run(c.Context, srv, s.log); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return outputError(errors.NewInternal(err))
	}
	return nil
}

// mcpCmd creates the mcp command.
func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve catalog tools over MCP on stdio",
		Action: withCatalog(func(c *cli.Context, s *session) error {
			if unknown := mcp.ValidateDisabledTools(s.cfg.DisabledTools); len(unknown) > 0 {
				s.log.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
			}
			if unknown := mcp.ValidateDisabledTypes(s.cfg.DisabledTypes); len(unknown) > 0 {
				s.log.Warn().Strs("types", unknown).Msg("unknown types in disabled_types")
			}
			if err := mcp.Run(s.cat, s.cfg, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}),
	}
}

// Helper functions

// idArg reads the positional tape id.
func idArg(c *cli.Context) (int64, error) {
	if c.NArg() == 0 {
		return 0, errors.NewValidation("tape id is required")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidation("id must be a positive integer")
	}
	return id, nil
}

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputStatus reports the catalog size after a mutation.
func outputStatus(c *cli.Context, s *session) error {
	count := s.cat.Count()
	return outputJSON(c, map[string]any{
		"count":  count,
		"status": catalog.StatusText(count),
	})
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.CatalogError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
