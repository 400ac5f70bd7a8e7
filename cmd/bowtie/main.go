package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/risk"
	"github.com/ecorisk/bowtie/pkg/tabular"
)

func usage() {
	fmt.Println("Usage: bowtie <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate --rows N --problem NAME [--seed N] --out FILE")
	fmt.Println("      Write a synthetic assessment table")
	fmt.Println("  validate --in FILE")
	fmt.Println("      Check a table's columns and required fields")
	fmt.Println("  score --in FILE --out FILE [--extended]")
	fmt.Println("      Normalize, rescore and rewrite a table")
	fmt.Println("  summary --in FILE")
	fmt.Println("      Print the risk profile of a table")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:], logger)
	case "validate":
		err = runValidate(os.Args[2:], logger)
	case "score":
		err = runScore(os.Args[2:], logger)
	case "summary":
		err = runSummary(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runGenerate(args []string, logger *slog.Logger) error {
	fs := newFlagSet("generate")
	rows := fs.Int("rows", 25, "Number of rows to generate")
	problem := fs.String("problem", "Loss of marine biodiversity", "Central problem")
	seed := fs.Int64("seed", time.Now().UnixNano(), "Random seed")
	out := fs.String("out", "", "Output CSV path")
	fs.Parse(args)

	if *out == "" {
		return fmt.Errorf("--out is required")
	}

	table := tabular.Generate(*rows, *problem, *seed)

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := tabular.Write(f, table); err != nil {
		return err
	}

	logger.Info("table generated", "rows", *rows, "seed", *seed, "path", *out)
	return nil
}

func runValidate(args []string, logger *slog.Logger) error {
	fs := newFlagSet("validate")
	in := fs.String("in", "", "Input CSV path")
	fs.Parse(args)

	table, err := readTable(*in)
	if err != nil {
		return err
	}

	bad := 0
	for i := range table.Rows {
		if rowErr := bowtie.ValidateRow(&table.Rows[i]); rowErr != nil {
			logger.Warn("invalid row", "row", i+1, "error", rowErr.Error())
			bad++
		}
	}

	logger.Info("validation finished",
		"rows", len(table.Rows), "invalid", bad)
	if bad > 0 {
		return fmt.Errorf("%d invalid rows", bad)
	}
	return nil
}

func runScore(args []string, logger *slog.Logger) error {
	fs := newFlagSet("score")
	in := fs.String("in", "", "Input CSV path")
	out := fs.String("out", "", "Output CSV path")
	seed := fs.Int64("seed", time.Now().UnixNano(), "Seed for default-filled scores")
	extended := fs.Bool("extended", false, "Write per-stage score columns")
	fs.Parse(args)

	table, err := readTable(*in)
	if err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("--out is required")
	}

	normalized, err := bowtie.NewNormalizer(*seed).Normalize(table)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	if *extended {
		err = tabular.WriteExtended(f, normalized)
	} else {
		err = tabular.Write(f, normalized)
	}
	if err != nil {
		return err
	}

	logger.Info("table scored", "rows", len(normalized.Rows), "path", *out)
	return nil
}

func runSummary(args []string) error {
	fs := newFlagSet("summary")
	in := fs.String("in", "", "Input CSV path")
	fs.Parse(args)

	table, err := readTable(*in)
	if err != nil {
		return err
	}

	summary := table.Summarize()
	fmt.Printf("Rows: %d\n", summary.Rows)
	for _, level := range []risk.Level{risk.Low, risk.Medium, risk.High} {
		fmt.Printf("  %-7s %d\n", level.String(), summary.ByLevel[level.String()])
	}
	fmt.Println("Central problems:")
	for _, problem := range summary.Problems {
		fmt.Printf("  - %s\n", problem)
	}
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

func readTable(path string) (*bowtie.Table, error) {
	if path == "" {
		return nil, fmt.Errorf("--in is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tabular.Read(f)
}
