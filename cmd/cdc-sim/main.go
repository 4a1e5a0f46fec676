// Command cdc-sim runs one contra-directional coupler simulation and writes
// the through and drop spectra.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/config"
	"github.com/siepic/ebeam-cdc/internal/db"
	"github.com/siepic/ebeam-cdc/internal/report"
	"github.com/siepic/ebeam-cdc/internal/version"
)

var (
	configFile = flag.String("config", "", "Path to a JSON simulation config (defaults apply when empty)")
	outFile    = flag.String("out", "-", "Spectrum CSV output path, - for stdout")
	pngFile    = flag.String("png", "", "Optional PNG plot path")
	htmlFile   = flag.String("html", "", "Optional HTML chart path")
	dbPath     = flag.String("db", "", "Optional SQLite database to record the run in")
	name       = flag.String("name", "contra-DC", "Spectrum name in plots")
	strict     = flag.Bool("strict", false, "Fail on the first numerically invalid wavelength")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

type options struct {
	cfg    *config.SimConfig
	out    string
	png    string
	html   string
	dbPath string
	name   string
	stdout io.Writer
}

func loadConfig(path string) (*config.SimConfig, error) {
	if path == "" {
		return config.DefaultSimConfig(), nil
	}
	return config.LoadSimConfig(path)
}

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *strict {
		v := true
		cfg.Simulation.Strict = &v
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		cfg:    cfg,
		out:    *outFile,
		png:    *pngFile,
		html:   *htmlFile,
		dbPath: *dbPath,
		name:   *name,
		stdout: os.Stdout,
	}
	if err := run(ctx, opts); err != nil {
		log.Fatalf("simulation failed: %v", err)
	}
}

func run(ctx context.Context, o options) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.GetTimeout())
	defer cancel()

	c := o.cfg.Case()
	res, err := cmt.Simulate(ctx, c.Spec, c.Dispersion, c.Coupling, c.Setup)
	if errors.Is(err, cmt.ErrCancelled) && res != nil {
		return writePartial(o, res, err)
	}
	if err != nil {
		return err
	}
	log.Print(res.Summary())

	m, err := cmt.Analyze(res)
	if err != nil && !errors.Is(err, cmt.ErrNoSpectrum) {
		return err
	}
	if err != nil {
		log.Printf("warning: %v", err)
	}

	spectrum := report.FromResult(o.name, res)
	if err := writeSpectrum(o.out, o.stdout, spectrum); err != nil {
		return err
	}
	if o.png != "" {
		if err := report.SavePNG(o.png, spectrum); err != nil {
			return fmt.Errorf("write plot: %w", err)
		}
		log.Printf("wrote %s", o.png)
	}
	if o.html != "" {
		if err := writeChart(o.html, spectrum); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		log.Printf("wrote %s", o.html)
	}

	if o.dbPath != "" {
		database, err := db.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close()
		id, err := database.RecordRun(ctx, c, res, m)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		log.Printf("recorded run %s in %s", id, o.dbPath)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	log.Printf("metrics: %s", data)
	return nil
}

// writePartial writes the points a stopped run finished, with the pending
// ones left blank, and returns cause.
func writePartial(o options, res *cmt.Result, cause error) error {
	done := 0
	for _, ok := range res.Completed {
		if ok {
			done++
		}
	}
	log.Printf("warning: run stopped after %d of %d wavelengths: %v", done, len(res.Wavelengths), cause)
	if err := writeSpectrum(o.out, o.stdout, report.FromResult(o.name, res)); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func writeSpectrum(path string, stdout io.Writer, s report.Spectrum) error {
	if path == "-" || path == "" {
		return report.WriteCSV(stdout, s)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeChart(path string, s report.Spectrum) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.RenderHTML(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
