package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/javorganize/internal/metadata"
	"github.com/Nomadcxx/javorganize/internal/ui"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the catalog of scraped files",
		Long: `The catalog maps each downloaded video to its scraped metadata. organize only
moves files found in it, and updates their paths once moved.

Examples:
  javorganize catalog add /downloads/abp123.mp4 --num ABP-123 --actor "Aoi"
  javorganize catalog import items.json
  javorganize catalog cache videos.json
  javorganize catalog list`,
	}

	cmd.AddCommand(newCatalogAddCmd())
	cmd.AddCommand(newCatalogImportCmd())
	cmd.AddCommand(newCatalogCacheCmd())
	cmd.AddCommand(newCatalogListCmd())

	return cmd
}

func newCatalogAddCmd() *cobra.Command {
	var (
		video metadata.Video
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add or replace the catalog entry of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(video.Num) == "" {
				return errors.New("--num is required")
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			item := &metadata.Item{Path: path, Genres: tags, Video: &video}
			if !cmd.Flags().Changed("actor") {
				video.Actors = nil
			}
			if !cmd.Flags().Changed("genre") {
				video.Genres = nil
			}
			return upsertItems(cmd, []*metadata.Item{item})
		},
	}

	f := cmd.Flags()
	f.StringVar(&video.Num, "num", "", "release number, e.g. ABP-123")
	f.StringVar(&video.Provider, "provider", "manual", "metadata provider name")
	f.StringVar(&video.Title, "title", "", "title")
	f.StringVar(&video.OriginalTitle, "original-title", "", "original title")
	f.StringVar(&video.Studio, "studio", "", "studio")
	f.StringVar(&video.Maker, "maker", "", "maker")
	f.StringVar(&video.Director, "director", "", "director")
	f.StringVar(&video.Set, "set", "", "series")
	f.StringVar(&video.Date, "date", "", "release date, YYYY-MM-DD")
	f.StringArrayVar(&video.Actors, "actor", nil, "actor (repeatable)")
	f.StringArrayVar(&video.Genres, "genre", nil, "video genre (repeatable)")
	f.StringArrayVar(&tags, "tag", nil, "tag of the file itself, e.g. "+metadata.ChineseSubtitleGenre+" (repeatable)")

	return cmd
}

// importItem is one element of a catalog import file.
type importItem struct {
	Path   string          `json:"path"`
	Genres []string        `json:"genres"`
	Video  *metadata.Video `json:"video"`
}

func newCatalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Add catalog entries from a JSON array",
		Long: `Read a JSON array of {"path", "genres", "video"} objects and upsert each one.
Relative paths are resolved against the directory of the JSON file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []importItem
			if err := readJSON(args[0], &raw); err != nil {
				return err
			}
			items, err := importItems(raw, filepath.Dir(args[0]))
			if err != nil {
				return err
			}
			return upsertItems(cmd, items)
		},
	}
}

func importItems(raw []importItem, baseDir string) ([]*metadata.Item, error) {
	items := make([]*metadata.Item, 0, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Path) == "" {
			return nil, fmt.Errorf("entry %d has no path", i)
		}
		path := r.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		items = append(items, &metadata.Item{Path: abs, Genres: r.Genres, Video: r.Video})
	}
	return items, nil
}

func upsertItems(cmd *cobra.Command, items []*metadata.Item) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, item := range items {
		if err := db.UpsertItem(item); err != nil {
			return err
		}
	}
	ui.SuccessMsg(cmd.OutOrStdout(), "%d catalog entries saved", len(items))
	return nil
}

func newCatalogCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache <file.json>",
		Short: "Store scraped records used to backfill incomplete entries",
		Long: `Read a JSON array of video records and store each in the metadata cache.
organize fills missing genres and actors of catalog entries from this cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var videos []*metadata.Video
			if err := readJSON(args[0], &videos); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openCatalog(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, v := range videos {
				if v == nil {
					continue
				}
				if err := db.SaveCachedVideo(v); err != nil {
					return fmt.Errorf("cache %s: %w", v.Num, err)
				}
			}
			ui.SuccessMsg(cmd.OutOrStdout(), "%d records cached", len(videos))
			return nil
		},
	}
}

func newCatalogListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openCatalog(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			items, err := db.ListItems(limit)
			if err != nil {
				return err
			}
			total, err := db.CountItems()
			if err != nil {
				return err
			}
			cached, err := db.CountCached()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tbl := ui.NewTable("NUM", "ACTORS", "TAGS", "PATH")
			tbl.SetMaxWidth(60)
			for _, item := range items {
				num, actors := "-", "-"
				if item.Video != nil {
					num = item.Video.Num
					if len(item.Video.Actors) > 0 {
						actors = strings.Join(item.Video.Actors, ", ")
					}
				}
				tbl.AddRow(num, actors, strings.Join(item.Genres, ", "), item.Path)
			}
			tbl.Render(out)
			fmt.Fprintf(out, "%d of %d entries, %d cached records\n", len(items), total, cached)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "maximum entries to show (0 for all)")

	return cmd
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
