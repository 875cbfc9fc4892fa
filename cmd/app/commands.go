package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"

	"github.com/starford/cookbook/internal"
	"github.com/starford/cookbook/internal/apperr"
	"github.com/starford/cookbook/internal/frontmatter"
	"github.com/starford/cookbook/internal/gitsync"
	"github.com/starford/cookbook/internal/history"
	"github.com/starford/cookbook/internal/models"
)

// withComponents loads the config, opens the shared components and runs fn.
// Logs go to stderr so command output stays clean.
func withComponents(ctx context.Context, cmd *cli.Command, fn func(*internal.Config, *internal.Components) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, logCloser := internal.NewLogger(cfg.App, os.Stderr)
	defer logCloser.Close()

	c, err := internal.NewComponents(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(cfg, c)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recipes, newest first",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(_ *internal.Config, c *internal.Components) error {
				items, err := c.Recipes.List(ctx)
				if err != nil {
					return err
				}
				if cmd.Bool("json") {
					return printJSON(items)
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FILENAME\tTITLE\tDATE\tTAGS")
				for _, s := range items {
					title := s.Title
					if s.Error != "" {
						title = "! " + s.Error
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Filename, title, s.Date, strings.Join(s.Tags, ", "))
				}
				return tw.Flush()
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Render a recipe in the terminal",
		ArgsUsage: "<filename>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "Print the stored document without rendering"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return errors.New("show: filename is required")
			}
			return withComponents(ctx, cmd, func(cfg *internal.Config, c *internal.Components) error {
				recipe, err := c.Recipes.Get(ctx, name)
				if err != nil {
					return err
				}
				if cmd.Bool("raw") {
					_, err := fmt.Print(frontmatter.Encode(recipe.Frontmatter, recipe.Content))
					return err
				}
				out, err := render(cfg.App.Theme, recipeMarkdown(recipe.Frontmatter, recipe.Content))
				if err != nil {
					return err
				}
				_, err = fmt.Print(out)
				return err
			})
		},
	}
}

// recipeMarkdown turns the metadata into a heading and a detail line above
// the body.
func recipeMarkdown(meta frontmatter.Metadata, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Text("title"))
	if d := meta.Text("description"); d != "" {
		fmt.Fprintf(&b, "_%s_\n\n", d)
	}
	var details []string
	for _, f := range []struct{ key, label string }{
		{"prep_time", "Prep"},
		{"cook_time", "Cook"},
		{"total_time", "Total"},
		{"servings", "Serves"},
	} {
		if v := meta.Text(f.key); v != "" {
			details = append(details, fmt.Sprintf("**%s:** %s", f.label, v))
		}
	}
	if len(details) > 0 {
		b.WriteString(strings.Join(details, " · ") + "\n\n")
	}
	if tags := meta.Strings("tags"); len(tags) > 0 {
		fmt.Fprintf(&b, "Tags: `%s`\n\n", strings.Join(tags, "` `"))
	}
	b.WriteString(body)
	return b.String()
}

func render(theme, md string) (string, error) {
	style := glamour.WithStandardStyle(theme)
	if theme == "" || theme == "auto" {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("init renderer: %w", err)
	}
	return r.Render(md)
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search recipes by title, description and tags",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{Name: "fuzzy", Usage: "Fuzzy-match titles instead"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q := strings.Join(cmd.Args().Slice(), " ")
			if q == "" {
				return errors.New("search: query is required")
			}
			return withComponents(ctx, cmd, func(_ *internal.Config, c *internal.Components) error {
				search := c.Recipes.Search
				if cmd.Bool("fuzzy") {
					search = func(ctx context.Context, q string) ([]models.RecipeSummary, error) {
						return c.Recipes.Suggest(ctx, q, 10)
					}
				}
				items, err := search(ctx, q)
				if err != nil {
					return err
				}
				if cmd.Bool("json") {
					return printJSON(items)
				}
				for _, s := range items {
					fmt.Printf("%s\t%s\n", s.Filename, s.Title)
				}
				return nil
			})
		},
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List every tag in use",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(_ *internal.Config, c *internal.Components) error {
				tags, err := c.Recipes.AllTags(ctx)
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Println(t)
				}
				return nil
			})
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show pending recipe changes",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(_ *internal.Config, c *internal.Components) error {
				changes, err := c.Coordinator.RecipeStatus(ctx)
				if err != nil {
					return err
				}
				var lastSynced *time.Time
				last, err := c.History.LastSuccess(ctx, history.KindSync)
				switch {
				case err == nil:
					lastSynced = &last.At
				case !errors.Is(err, apperr.ErrNotFound):
					return err
				}
				if cmd.Bool("json") {
					return printJSON(struct {
						*gitsync.RecipeChanges
						LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
					}{changes, lastSynced})
				}
				fmt.Printf("On branch %s (ahead %d, behind %d)\n", changes.Branch, changes.Ahead, changes.Behind)
				if lastSynced != nil {
					fmt.Printf("Last synced %s\n", lastSynced.Local().Format(time.DateTime))
				}
				if !changes.HasChanges {
					fmt.Println("No recipe changes.")
					return nil
				}
				for _, group := range []struct {
					label string
					files []string
				}{
					{"created", changes.Created},
					{"modified", changes.Modified},
					{"deleted", changes.Deleted},
				} {
					for _, f := range group.files {
						fmt.Printf("  %-9s %s\n", group.label, f)
					}
				}
				return nil
			})
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Commit recipe changes and push them to GitHub",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Commit message"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(_ *internal.Config, c *internal.Components) error {
				res, err := c.Coordinator.Sync(ctx, cmd.String("message"))
				if err != nil {
					return err
				}
				fmt.Println(res.Message)
				for _, f := range res.Files {
					fmt.Printf("  %-9s %s\n", f.Status, f.File)
				}
				return nil
			})
		},
	}
}

func pullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Pull remote changes into the local clone",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(_ *internal.Config, c *internal.Components) error {
				res, err := c.Coordinator.Pull(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Pulled, now at %s\n", res.Head)
				return nil
			})
		},
	}
}

func cloneCommand() *cli.Command {
	return &cli.Command{
		Name:      "clone",
		Usage:     "Clone the configured repository",
		ArgsUsage: "[path]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(cfg *internal.Config, c *internal.Components) error {
				target := cmd.Args().First()
				if target == "" {
					target = cfg.GitHub.AbsLocalPath()
				}
				if err := c.Coordinator.CloneInto(ctx, target); err != nil {
					return err
				}
				fmt.Printf("Cloned into %s\n", target)
				return nil
			})
		},
	}
}

func checkCloneCommand() *cli.Command {
	return &cli.Command{
		Name:      "check-clone",
		Usage:     "Check that a directory is a usable clone of the configured repository",
		ArgsUsage: "[path]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(cfg *internal.Config, c *internal.Components) error {
				target := cmd.Args().First()
				if target == "" {
					target = cfg.GitHub.AbsLocalPath()
				}
				check := c.Coordinator.ValidateLocalClone(ctx, target)
				if !check.Valid {
					return fmt.Errorf("%s: %s", target, check.Reason)
				}
				fmt.Printf("%s is a valid clone\n", target)
				return nil
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import Eleventy recipe files",
		ArgsUsage: "<file>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return errors.New("import: at least one file is required")
			}
			return withComponents(ctx, cmd, func(_ *internal.Config, c *internal.Components) error {
				var failed int
				for _, f := range files {
					data, err := os.ReadFile(f)
					if err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", f, err)
						failed++
						continue
					}
					name, err := c.Recipes.Import(ctx, filepath.Base(f), data)
					if err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", f, err)
						failed++
						continue
					}
					fmt.Printf("imported %s\n", name)
				}
				if failed > 0 {
					return fmt.Errorf("import: %d of %d files failed", failed, len(files))
				}
				return nil
			})
		},
	}
}
