// Command cdc-layout draws a contra-directional coupler cell and writes its
// shapes as the canonical text stream, JSON or an SVG preview.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/siepic/ebeam-cdc/internal/config"
	"github.com/siepic/ebeam-cdc/internal/layout"
)

var (
	configFile = flag.String("config", "", "Path to a JSON config (defaults apply when empty)")
	format     = flag.String("format", "text", "Output format: text, json or svg")
	outFile    = flag.String("out", "-", "Output path, - for stdout")
	layerFile  = flag.String("layers", "", "KLayout .lyp layer properties for SVG colours")
	kind       = flag.String("kind", "", "Cell kind, overrides the config (standard or chirped)")
	texts      = flag.Bool("texts", false, "Render text labels in the SVG preview")
)

type options struct {
	cfg       *config.SimConfig
	format    string
	layerFile string
	texts     bool
}

func main() {
	flag.Parse()

	cfg := config.DefaultSimConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadSimConfig(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *kind != "" {
		cfg.Layout.Kind = kind
	}
	lf := *layerFile
	if lf == "" {
		lf = cfg.GetLayerFile()
	}

	out := io.Writer(os.Stdout)
	if *outFile != "-" && *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			log.Fatalf("failed to create output: %v", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Printf("close %s: %v", *outFile, err)
			}
		}()
		out = f
	}

	hash, err := run(out, options{cfg: cfg, format: *format, layerFile: lf, texts: *texts})
	if err != nil {
		log.Fatalf("layout failed: %v", err)
	}
	log.Printf("layout hash %s", hash)
}

// run produces the configured cell and returns the hash of its canonical
// stream.
func run(w io.Writer, o options) (string, error) {
	k, err := o.cfg.CellKind()
	if err != nil {
		return "", err
	}
	rec := layout.NewRecorder(o.cfg.GetDBU())
	cell, err := layout.Produce(k, o.cfg.Spec(), o.cfg.LayoutOptions(), rec)
	if err != nil {
		return "", err
	}

	switch o.format {
	case "text", "":
		err = rec.WriteCanonical(w)
	case "json":
		err = rec.WriteJSON(w, cell)
	case "svg":
		layers := layout.DefaultLayerMap()
		if o.layerFile != "" {
			if layers, err = layout.LoadLayerMap(o.layerFile); err != nil {
				return "", err
			}
		}
		opt := layout.DefaultSVGOptions()
		opt.Texts = o.texts
		err = rec.WriteSVG(w, layers, opt)
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or svg)", o.format)
	}
	if err != nil {
		return "", err
	}
	return rec.Hash(), nil
}
