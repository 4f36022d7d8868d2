package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/glebarez/sqlite"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/rodrigo-brito/psviewer"
	"github.com/rodrigo-brito/psviewer/feed"
	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/plot"
	"github.com/rodrigo-brito/psviewer/plot/indicator"
	"github.com/rodrigo-brito/psviewer/storage"
	"github.com/rodrigo-brito/psviewer/toolbar"
	"github.com/rodrigo-brito/psviewer/tools/log"
)

var layerFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "input",
		Aliases:  []string{"i"},
		Usage:    "PS layer, eg. ./ps.csv or ./ps.xlsx",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "sheet",
		Usage: "sheet of a workbook (default first sheet)",
	},
	&cli.Int64SliceFlag{
		Name:  "id",
		Usage: "feature ids to show (default all)",
	},
	&cli.StringFlag{
		Name:  "last",
		Usage: "keep only the measurements of the last period, eg. 260w or 730d",
	},
	&cli.StringSliceFlag{
		Name:  "title-param",
		Usage: "labels of the attribute values shown in the title",
	},
	&cli.StringFlag{
		Name:  "xlabel",
		Value: "date",
	},
	&cli.StringFlag{
		Name:  "ylabel",
		Value: "displacement [mm]",
	},
}

var displayFlags = []cli.Flag{
	&cli.BoolFlag{Name: "lines", Usage: "join the points"},
	&cli.BoolFlag{Name: "smooth", Usage: "draw a smooth spline"},
	&cli.BoolFlag{Name: "linregr", Usage: "draw the linear trend"},
	&cli.BoolFlag{Name: "polyregr", Usage: "draw the cubic trend"},
	&cli.BoolFlag{Name: "detrend", Usage: "show residuals from the linear trend"},
	&cli.BoolFlag{Name: "legend"},
	&cli.BoolFlag{Name: "hgrid"},
	&cli.BoolFlag{Name: "vgrid"},
	&cli.StringFlag{Name: "replica", Usage: "distance of the replicas, eg. 28"},
	&cli.BoolFlag{Name: "up", Usage: "draw the replicas above"},
	&cli.BoolFlag{Name: "down", Usage: "draw the replicas below"},
	&cli.IntFlag{Name: "sma", Usage: "period of a simple moving average"},
	&cli.IntFlag{Name: "ema", Usage: "period of an exponential moving average"},
	&cli.IntFlag{Name: "bollinger", Usage: "period of the Bollinger bands"},
}

func main() {
	app := &cli.App{
		Name:     "psviewer",
		HelpName: "psviewer",
		Usage:    "Time series of permanent scatterers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "settings",
				Usage: "chart settings database, buntdb or .sqlite",
				Value: "psviewer.db",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := log.ParseLevel(c.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			renderCommand(),
			serveCommand(),
			summaryCommand(),
			settingsCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func openStorage(c *cli.Context) (storage.Storage, error) {
	file := c.String("settings")
	switch strings.ToLower(filepath.Ext(file)) {
	case ".sqlite", ".sqlite3":
		return storage.FromSQL(sqlite.Open(file))
	default:
		return storage.FromFile(file)
	}
}

func loadLayer(c *cli.Context) (*feed.Layer, error) {
	layer, err := feed.Open(c.String("input"), c.String("sheet"))
	if err != nil {
		return nil, err
	}
	if last := c.String("last"); last != "" {
		if err := layer.Limit(last); err != nil {
			return nil, err
		}
	}
	return layer, nil
}

func featureIDs(c *cli.Context, layer *feed.Layer) []int64 {
	if ids := c.Int64Slice("id"); len(ids) > 0 {
		return ids
	}
	return layer.IDs()
}

func indicators(c *cli.Context) []plot.Indicator {
	var result []plot.Indicator
	if period := c.Int("sma"); period > 0 {
		result = append(result, indicator.SMA(period, "m"))
	}
	if period := c.Int("ema"); period > 0 {
		result = append(result, indicator.EMA(period, "c"))
	}
	if period := c.Int("bollinger"); period > 0 {
		result = append(result, indicator.BollingerBands(period, 2, "b", "y"))
	}
	return result
}

func newViewer(c *cli.Context, layer *feed.Layer, settings storage.Storage) (*psviewer.Viewer, error) {
	options := []psviewer.Option{
		psviewer.WithStorage(settings),
		psviewer.WithAxisLabels(c.String("xlabel"), c.String("ylabel")),
		psviewer.WithIndicators(indicators(c)...),
	}
	if labels := c.StringSlice("title-param"); len(labels) > 0 {
		options = append(options, psviewer.WithTitleParams(labels...))
	}
	if c.Bool("log-y") {
		options = append(options, psviewer.WithChartOptions(plot.WithLogScaleY()))
	}

	viewer, err := psviewer.NewViewer(layer, options...)
	if err != nil {
		return nil, err
	}
	return viewer, viewer.Show()
}

func applyDisplay(c *cli.Context, viewer *psviewer.Viewer) error {
	controls := viewer.Toolbar()
	controls.SetOptions(toolbar.Options{
		Lines:      c.Bool("lines"),
		Smooth:     c.Bool("smooth"),
		LinRegr:    c.Bool("linregr"),
		PolyRegr:   c.Bool("polyregr"),
		Detrending: c.Bool("detrend"),
		Legend:     c.Bool("legend"),
	})
	controls.SetGrids(c.Bool("hgrid"), c.Bool("vgrid"))
	if distance := c.String("replica"); distance != "" {
		if !controls.SetReplicas(distance, c.Bool("up"), c.Bool("down")) {
			return fmt.Errorf("invalid replica distance %q", distance)
		}
	}
	viewer.Graph().DisplayIndicators(len(indicators(c)) > 0)
	return nil
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:     "render",
		HelpName: "render",
		Usage:    "Save the chart of the selected features",
		Flags: append(append([]cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "eg. ./chart.png, {id} is replaced by the feature id with --each",
				Required: true,
			},
			&cli.Float64Flag{Name: "width", Usage: "centimeters", Value: plot.DefaultWidth},
			&cli.Float64Flag{Name: "height", Usage: "centimeters", Value: plot.DefaultHeight},
			&cli.BoolFlag{Name: "each", Usage: "one chart per feature"},
			&cli.StringFlag{Name: "flavor", Usage: "scatter, line or histogram", Value: plot.FlavorScatter.String()},
			&cli.BoolFlag{Name: "log-y", Usage: "logarithmic y axis"},
		}, layerFlags...), displayFlags...),
		Action: func(c *cli.Context) error {
			layer, err := loadLayer(c)
			if err != nil {
				return err
			}

			flavor, err := plot.ParseFlavor(c.String("flavor"))
			if err != nil {
				return err
			}
			if flavor != plot.FlavorScatter {
				return renderPlain(c, layer, flavor)
			}

			settings, err := openStorage(c)
			if err != nil {
				return err
			}
			viewer, err := newViewer(c, layer, settings)
			if err != nil {
				return err
			}
			defer viewer.Close()

			ids := featureIDs(c, layer)
			output := c.String("output")
			width, height := c.Float64("width"), c.Float64("height")
			if !c.Bool("each") {
				for _, id := range ids {
					if err := viewer.AddFeature(id); err != nil {
						return err
					}
				}
				if err := applyDisplay(c, viewer); err != nil {
					return err
				}
				return viewer.Save(output, width, height)
			}

			if !strings.Contains(output, "{id}") {
				return fmt.Errorf("output %q needs an {id} placeholder with --each", output)
			}
			if err := applyDisplay(c, viewer); err != nil {
				return err
			}
			progressBar := progressbar.Default(int64(len(ids)))
			for _, id := range ids {
				if err := viewer.AddFeature(id); err != nil {
					log.WithField("feature", id).Warnf("not rendered: %s", err)
				} else {
					file := strings.ReplaceAll(output, "{id}", fmt.Sprint(id))
					if err := viewer.Save(file, width, height); err != nil {
						return err
					}
					if err := viewer.RemoveSelected(0); err != nil {
						return err
					}
				}
				if err := progressBar.Add(1); err != nil {
					return err
				}
			}
			return progressBar.Close()
		},
	}
}

// renderPlain draws the features with a single primary visual, without the
// derived layers of the time series graph.
func renderPlain(c *cli.Context, layer *feed.Layer, flavor plot.Flavor) error {
	options := []plot.Option{
		plot.WithFlavor(flavor),
		plot.WithLabels(c.String("xlabel"), c.String("ylabel")),
	}
	if c.Bool("log-y") {
		options = append(options, plot.WithLogScaleY())
	}
	chart := plot.NewChart(options...)
	for _, id := range featureIDs(c, layer) {
		ts, err := layer.TimeSeries(id)
		if err != nil {
			return err
		}
		if flavor == plot.FlavorHistogram {
			ts.X, ts.Y = ts.Y, ts.X
		}
		if _, err := chart.AddTimeSeries(ts); err != nil {
			return err
		}
	}
	chart.DisplayGrids(c.Bool("hgrid"), c.Bool("vgrid"))
	chart.DisplayLegend(c.Bool("legend"))
	if err := chart.Refresh(); err != nil {
		return err
	}
	return chart.Save(c.String("output"), c.Float64("width"), c.Float64("height"))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:     "serve",
		HelpName: "serve",
		Usage:    "Publish the chart on a local web page",
		Flags: append(append([]cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080},
			&cli.BoolFlag{Name: "watch", Usage: "reload the layer when its file changes"},
			&cli.BoolFlag{Name: "debug", Usage: "serve the chart script unminified"},
		}, layerFlags...), displayFlags...),
		Action: func(c *cli.Context) error {
			layer, err := loadLayer(c)
			if err != nil {
				return err
			}
			settings, err := openStorage(c)
			if err != nil {
				return err
			}
			viewer, err := newViewer(c, layer, settings)
			if err != nil {
				return err
			}
			defer viewer.Close()

			for _, id := range featureIDs(c, layer) {
				if err := viewer.AddFeature(id); err != nil {
					return err
				}
			}
			if err := applyDisplay(c, viewer); err != nil {
				return err
			}

			options := []plot.ServerOption{plot.WithPort(c.Int("port"))}
			if c.Bool("debug") {
				options = append(options, plot.WithDebug())
			}
			server, err := plot.NewServer(viewer.Graph(), viewer.Toolbar(), options...)
			if err != nil {
				return err
			}

			if c.Bool("watch") {
				watcher, err := fsnotify.NewWatcher()
				if err != nil {
					return fmt.Errorf("failed creating file watcher: %w", err)
				}
				defer watcher.Close()
				// editors replacing the file by rename drop a watch on the file itself
				if err := watcher.Add(filepath.Dir(c.String("input"))); err != nil {
					return err
				}
				go watch(c, watcher, server, viewer)
			}
			return server.Start()
		},
	}
}

// reloads reports whether ev changed the content of file, watched through
// its directory.
func reloads(ev fsnotify.Event, file string) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(file) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func watch(c *cli.Context, watcher *fsnotify.Watcher, server *plot.Server, viewer *psviewer.Viewer) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !reloads(ev, c.String("input")) {
				continue
			}
			err := server.Update(func() error {
				layer, err := loadLayer(c)
				if err != nil {
					return err
				}
				return viewer.Reload(layer)
			})
			if err != nil {
				log.Errorf("failed reloading %s: %s", ev.Name, err)
				continue
			}
			log.Infof("%s reloaded", ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("file watcher: %s", err)
		}
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:     "summary",
		HelpName: "summary",
		Usage:    "Print the velocity of the selected features",
		Flags:    layerFlags,
		Action: func(c *cli.Context) error {
			layer, err := loadLayer(c)
			if err != nil {
				return err
			}
			settings, err := openStorage(c)
			if err != nil {
				return err
			}
			viewer, err := newViewer(c, layer, settings)
			if err != nil {
				return err
			}
			defer viewer.Close()

			for _, id := range featureIDs(c, layer) {
				if err := viewer.AddFeature(id); err != nil {
					return err
				}
			}
			return viewer.Summary(os.Stdout)
		},
	}
}

// settingKey accepts a full key or its short name, eg. "points" for
// "/pstimeseries/pointsProps".
func settingKey(name string) (string, error) {
	for _, key := range model.SettingKeys {
		short := strings.TrimSuffix(strings.TrimPrefix(key, "/pstimeseries/"), "Props")
		if strings.EqualFold(name, key) || strings.EqualFold(name, short) {
			return key, nil
		}
	}
	return "", fmt.Errorf("unknown setting %q", name)
}

// parseProps reads "name=value" pairs over base.
func parseProps(base model.Props, pairs []string) (model.Props, error) {
	props := base.Copy()
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid property %q, expected name=value", pair)
		}
		name = strings.TrimSpace(name)
		if value == "" {
			delete(props, name)
			continue
		}
		props[name] = strings.TrimSpace(value)
	}
	return props, nil
}

func withStorage(action func(c *cli.Context, s storage.Storage) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openStorage(c)
		if err != nil {
			return err
		}
		defer s.Close()
		return action(c, s)
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:     "settings",
		HelpName: "settings",
		Usage:    "Manage the chart fonts and colors",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print settings as YAML",
				ArgsUsage: "[name...]",
				Action: withStorage(func(c *cli.Context, s storage.Storage) error {
					if c.NArg() == 0 {
						return storage.Export(os.Stdout, s)
					}
					keys := make([]string, 0, c.NArg())
					for _, name := range c.Args().Slice() {
						key, err := settingKey(name)
						if err != nil {
							return err
						}
						keys = append(keys, key)
					}
					return storage.Export(os.Stdout, s, storage.WithKeyIn(keys...))
				}),
			},
			{
				Name:      "set",
				Usage:     "Change properties of a setting, eg. set points marker=o c=r",
				ArgsUsage: "name property=value...",
				Action: withStorage(func(c *cli.Context, s storage.Storage) error {
					if c.NArg() < 2 {
						return fmt.Errorf("expected a setting name and at least one property")
					}
					key, err := settingKey(c.Args().First())
					if err != nil {
						return err
					}
					props, err := parseProps(storage.Lookup(s, key), c.Args().Tail())
					if err != nil {
						return err
					}
					return s.SetValue(key, props)
				}),
			},
			{
				Name:  "export",
				Usage: "Write every setting to a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true},
				},
				Action: withStorage(func(c *cli.Context, s storage.Storage) error {
					file, err := os.Create(c.String("output"))
					if err != nil {
						return err
					}
					defer file.Close()
					return storage.Export(file, s)
				}),
			},
			{
				Name:      "import",
				Usage:     "Read settings from a YAML file",
				ArgsUsage: "file",
				Action: withStorage(func(c *cli.Context, s storage.Storage) error {
					file, err := os.Open(c.Args().First())
					if err != nil {
						return err
					}
					defer file.Close()
					keys, err := storage.Import(file, s)
					if err != nil {
						return err
					}
					log.Infof("%d settings imported", len(keys))
					return nil
				}),
			},
			{
				Name:  "last",
				Usage: "Print the setting changed most recently",
				Action: withStorage(func(_ *cli.Context, s storage.Storage) error {
					key, at, err := s.LastUpdate()
					if err != nil {
						return err
					}
					if key == "" {
						fmt.Println("no settings stored")
						return nil
					}
					fmt.Printf("%s changed at %s\n", key, at.Format(time.RFC3339))
					return nil
				}),
			},
			{
				Name:  "reset",
				Usage: "Restore the default settings",
				Action: withStorage(func(_ *cli.Context, s storage.Storage) error {
					return storage.Reset(s)
				}),
			},
		},
	}
}
