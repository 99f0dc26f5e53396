package core_test

import (
	"context"
	"fmt"
	"os"

	"github.com/hooklint/hooklint/pkg/core"
)

// ExampleScan scans every *.ast.json tree under a directory.
func ExampleScan() {
	cfg := core.Config{
		Root:     ".",
		Threads:  4,
		MaxBytes: 8 << 20,
	}
	findings, err := core.Scan(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		return
	}
	if len(findings) == 0 {
		fmt.Println("No signal antipatterns found.")
		return
	}
	_ = core.MarshalFindings(os.Stdout, findings)
}

// ExampleScanWithStats scans all trees as one project so models declared in
// one file resolve in another.
func ExampleScanWithStats() {
	corpus, err := core.LoadRules()
	if err != nil {
		panic(err)
	}
	res, err := core.ScanWithStats(context.Background(), core.Config{Root: ".", Project: true, Corpus: corpus})
	if err != nil {
		panic(err)
	}
	fmt.Printf("Scanned %d trees in %s\n", res.FilesScanned, res.Duration)
	for _, fe := range res.FileErrors {
		fmt.Println("skipped:", fe.Error())
	}
}
