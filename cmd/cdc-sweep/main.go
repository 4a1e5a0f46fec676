// Command cdc-sweep simulates every combination of the swept grating
// parameters and writes one CSV row per combination.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/siepic/ebeam-cdc/internal/config"
	"github.com/siepic/ebeam-cdc/internal/db"
	"github.com/siepic/ebeam-cdc/internal/sweep"
)

// paramFlags collects repeated -param values.
type paramFlags []sweep.Param

func (p *paramFlags) String() string {
	names := make([]string, len(*p))
	for i, param := range *p {
		names[i] = param.Name
	}
	return strings.Join(names, ",")
}

func (p *paramFlags) Set(s string) error {
	param, err := sweep.ParseParam(s)
	if err != nil {
		return err
	}
	*p = append(*p, param)
	return nil
}

var (
	params      paramFlags
	configFile  = flag.String("config", "", "Path to a JSON base config (defaults apply when empty)")
	outFile     = flag.String("out", "-", "Results CSV path, - for stdout")
	summaryFile = flag.String("summary", "", "Optional summary CSV path (mean, stddev, min, max per metric)")
	dbPath      = flag.String("db", "", "Optional SQLite database to record every combination in")
	listParams  = flag.Bool("list", false, "List the sweepable parameters and exit")
)

func init() {
	flag.Var(&params, "param", "Swept parameter as name=min:max:step or name=v1,v2 (repeatable)")
}

func main() {
	flag.Parse()
	if *listParams {
		for _, n := range sweep.ParamNames() {
			fmt.Println(n)
		}
		return
	}
	if len(params) == 0 {
		log.Fatal("at least one -param is required (see -list)")
	}

	cfg := config.DefaultSimConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadSimConfig(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	var rec sweep.Recorder
	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
		rec = database
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := io.Writer(os.Stdout)
	if *outFile != "-" && *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			log.Fatalf("failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	runner := sweep.NewRunner(cfg.Case(), rec)
	state, err := run(ctx, runner, sweep.Request{Params: params, Record: rec != nil}, out)
	for _, w := range state.Warnings {
		log.Printf("warning: %s", w)
	}
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
	log.Printf("sweep %s: %d/%d combinations", state.ID, state.CompletedCombos, state.TotalCombos)

	if *summaryFile != "" {
		if err := writeSummary(*summaryFile, state.Summary); err != nil {
			log.Fatalf("failed to write summary: %v", err)
		}
	}
}

// run executes the sweep and writes its results to w, including partial
// results of a stopped sweep.
func run(ctx context.Context, r *sweep.Runner, req sweep.Request, w io.Writer) (sweep.State, error) {
	state, runErr := r.Run(ctx, req)
	if state.ID == "" {
		return state, runErr
	}
	if err := sweep.NewCSVWriter(w, state.Params).WriteState(state); err != nil {
		return state, err
	}
	return state, runErr
}

func writeSummary(path string, summary map[string]sweep.Stat) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sweep.WriteSummaryCSV(f, summary); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
