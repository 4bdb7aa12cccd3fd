package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/config"
	"github.com/banshee-data/pgraph/internal/fit"
	"github.com/banshee-data/pgraph/internal/pgraph"
	"github.com/banshee-data/pgraph/internal/pointio"
	"github.com/banshee-data/pgraph/internal/render"
	"github.com/banshee-data/pgraph/internal/store"
	"github.com/banshee-data/pgraph/internal/version"
)

var (
	inPath       = flag.String("in", "", "Points CSV (x,y[,weight])")
	curvesPath   = flag.String("curves", "", "Optional seed curves CSV (curve,x,y)")
	configPath   = flag.String("config", "", "Tuning JSON file (defaults when empty)")
	outPath      = flag.String("out", "-", "Fitted curves CSV, - for stdout")
	snapshotPath = flag.String("snapshot", "", "Write the run result and graph snapshot as JSON")
	pngPath      = flag.String("png", "", "Write a PNG plot of the fit")
	htmlPath     = flag.String("html", "", "Write an interactive HTML plot of the fit")
	dbPath       = flag.String("db", "", "Archive the run in this SQLite database")
	timeout      = flag.Duration("timeout", 0, "Abort the fit after this long (0 = no limit)")
	verbose      = flag.Bool("v", false, "Log per-iteration diagnostics")
	veryVerbose  = flag.Bool("vv", false, "Also log individual graph edits")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// options is everything run needs, separated from the flag globals so it
// can be driven from tests.
type options struct {
	in, curves, config string
	out, snapshot      string
	png, html, db      string
	timeout            time.Duration
	stdout             io.Writer
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *inPath == "" {
		log.Fatal("-in is required")
	}

	logs := pgraph.LogWriters{Ops: os.Stderr}
	if *verbose || *veryVerbose {
		logs.Diag = os.Stderr
	}
	if *veryVerbose {
		logs.Trace = os.Stderr
	}
	pgraph.SetLogWriters(logs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, options{
		in:       *inPath,
		curves:   *curvesPath,
		config:   *configPath,
		out:      *outPath,
		snapshot: *snapshotPath,
		png:      *pngPath,
		html:     *htmlPath,
		db:       *dbPath,
		timeout:  *timeout,
		stdout:   os.Stdout,
	})
	if err != nil {
		log.Fatalf("pgraph: %v", err)
	}
}

func loadParams(path string) (fit.Params, error) {
	cfg := config.EmptyTuningConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(path); err != nil {
			return fit.Params{}, err
		}
	}
	return cfg.ToParams()
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func run(ctx context.Context, o options) error {
	params, err := loadParams(o.config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	points, err := readFile(o.in, pointio.ReadPoints)
	if err != nil {
		return fmt.Errorf("failed to read points: %w", err)
	}

	var alg *fit.Algorithm
	if o.curves != "" {
		var curves [][]r2.Vec
		if curves, err = readFile(o.curves, pointio.ReadCurves); err != nil {
			return fmt.Errorf("failed to read curves: %w", err)
		}
		alg, err = fit.NewFromCurves(points, curves, params)
	} else {
		alg, err = fit.New(points, params)
	}
	if err != nil {
		return err
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	res, err := alg.Run(ctx)
	if err != nil {
		return err
	}

	if o.out == "-" {
		if err := pointio.WriteCurves(o.stdout, res.Curves); err != nil {
			return err
		}
	} else if o.out != "" {
		if err := writeFile(o.out, func(w io.Writer) error { return pointio.WriteCurves(w, res.Curves) }); err != nil {
			return fmt.Errorf("failed to write curves: %w", err)
		}
	}

	if o.snapshot != "" {
		err := writeFile(o.snapshot, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		})
		if err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}

	scene := render.Scene{
		Title:    "Principal graph",
		Subtitle: fmt.Sprintf("run %s: %d vertices, mse %.4g", res.RunID, len(res.Snapshot.Vertices), res.MSE),
		Points:   points,
		Curves:   res.Curves,
		Snapshot: res.Snapshot,
	}
	if o.png != "" {
		if err := render.SavePNG(o.png, scene); err != nil {
			return err
		}
	}
	if o.html != "" {
		if err := writeFile(o.html, func(w io.Writer) error { return render.WriteHTML(w, scene) }); err != nil {
			return fmt.Errorf("failed to write HTML: %w", err)
		}
	}

	if o.db != "" {
		s, err := store.Open(o.db)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.SaveRun(ctx, res, o.in); err != nil {
			return err
		}
		pgraph.Opsf("archived run %s in %s", res.RunID, o.db)
	}
	return nil
}
