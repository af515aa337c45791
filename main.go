package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/profile"

	"github.com/chazu/rbfsurf/pkg/cloud"
	"github.com/chazu/rbfsurf/pkg/config"
	"github.com/chazu/rbfsurf/pkg/logging"
	"github.com/chazu/rbfsurf/pkg/store"
)

var (
	configPath string
	scriptPath string
	inputPath  string
	outPath    string
	dbPath     string
	modelID    string
	name       string
	volumePath string
	volumeN    int
	logLevel   string

	doList bool
	doProf bool
)

func main() {
	flag.StringVar(&configPath, "config", "./rbfsurf.hjson", "Path to HJSON config file")
	flag.StringVar(&scriptPath, "script", "", "Scene script producing oriented points")
	flag.StringVar(&inputPath, "input", "", "Point cloud file (.xyz, .ply, optionally .zst or .lz4)")
	flag.StringVar(&outPath, "out", "", "Output file (.stl or .json); JSON goes to stdout when empty")
	flag.StringVar(&dbPath, "db", "", "SQLite model store (overrides config)")
	flag.StringVar(&modelID, "model", "", "Mesh a stored model by id")
	flag.StringVar(&name, "name", "", "Name for the mesh and stored model")
	flag.StringVar(&volumePath, "volume", "", "Also write the field sampled on a lattice as JSON")
	flag.IntVar(&volumeN, "volume-cells", 32, "Lattice points per axis for -volume")
	flag.StringVar(&logLevel, "log-level", "", "Log level (overrides config)")
	flag.BoolVar(&doList, "list", false, "List stored models")
	flag.BoolVar(&doProf, "prof", false, "Enable profiling (debug)")
	flag.Parse()

	if doProf {
		defer profile.Start().Stop()
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	conf, err := config.LoadConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) && !flagSet("config") {
		return config.Default(), nil
	}
	return conf, err
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func run() error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if logLevel != "" {
		conf.Log.Level = logLevel
	}
	if dbPath != "" {
		conf.Store.Path = dbPath
	}
	logger, err := logging.FromConfig(conf.Log.Level, conf.Log.Format)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := NewApp(conf, logger)
	app.SetName(name)

	if conf.Store.Path != "" {
		st, err := store.Open(ctx, conf.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		app.UseStore(st)

		if doList {
			return listModels(ctx, st)
		}
		if modelID != "" {
			m, err := st.Load(ctx, modelID)
			if err != nil {
				return err
			}
			if name == "" {
				name = modelID
			}
			return emit(ctx, app, app.MeshModel(m, name))
		}
	} else if doList || modelID != "" {
		return errors.New("-list and -model need a store (-db or store.path)")
	}

	var res Result
	switch {
	case scriptPath != "" && inputPath != "":
		return errors.New("-script and -input are mutually exclusive")
	case scriptPath != "":
		src, err := os.ReadFile(scriptPath)
		if err != nil {
			return err
		}
		res = app.Evaluate(ctx, string(src))
	case inputPath != "":
		points, err := cloud.Load(inputPath)
		if err != nil {
			return err
		}
		logger.WithSource(inputPath).Info("point cloud loaded", "points", len(points))
		res = app.Reconstruct(ctx, points)
	default:
		flag.Usage()
		return errors.New("one of -script, -input, -model or -list is required")
	}
	return emit(ctx, app, res)
}

func emit(ctx context.Context, app *App, res Result) error {
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			if e.Line > 0 {
				fmt.Fprintf(os.Stderr, "%d:%d: %s\n", e.Line, e.Col, e.Message)
			} else {
				fmt.Fprintln(os.Stderr, e.Message)
			}
		}
		if !res.OK() {
			return errors.New("reconstruction failed")
		}
	}

	if volumePath != "" {
		if err := writeVolume(ctx, app, res); err != nil {
			return err
		}
	}

	if strings.EqualFold(filepath.Ext(outPath), ".stl") {
		return app.WriteSTL(res, outPath)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

func writeVolume(ctx context.Context, app *App, res Result) error {
	g, err := app.Volume(ctx, res, volumeN)
	if err != nil {
		return err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return os.WriteFile(volumePath, data, 0o644)
}

func listModels(ctx context.Context, st *store.Store) error {
	records, err := st.List(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Printf("%s\t%s\t%s\tcenters=%d rank=%d residual=%.3g\n",
			r.ID, r.Name, r.Created.Format("2006-01-02 15:04:05"), r.Centers, r.Rank, r.Residual)
	}
	return nil
}
