//go:build ignore

// Package main builds sample index shards for trying shardsearch by hand.
// Usage: go run scripts/build-sample-shards.go -data ~/.shardsearch/data -shards 3 -docs 200
//
// The shards are written under <data>/shards, so `shardsearch shards discover`
// (or a running `shardsearch serve`) registers them.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xkfz007/shardsearch/internal/shardtest"
)

var (
	dataDir   = flag.String("data", "testdata/sample", "Data directory")
	numShards = flag.Int("shards", 3, "Number of shards to build")
	numDocs   = flag.Int("docs", 200, "Documents per shard")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	words = strings.Fields(`annual report budget invoice meeting notes project
		proposal contract summary travel expense quarterly review design draft
		schedule release customer supplier order receipt payroll strategy plan`)
	types   = []string{"txt", "pdf", "docx", "md", "eml"}
	authors = []string{"Ada", "Grace", "Linus", "Barbara", "Ken"}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))
	start := time.Now()

	for s := 1; s <= *numShards; s++ {
		id := fmt.Sprintf("sample-%02d", s)
		sh := shardtest.NewShard(*dataDir, id)
		if err := shardtest.Build(sh, docs(rng, *numDocs)); err != nil {
			fmt.Fprintf(os.Stderr, "build %s: %v\n", id, err)
			os.Exit(1)
		}
		fmt.Printf("built %s (%d docs) at %s\n", id, *numDocs, sh.IndexPath)
	}

	abs, _ := filepath.Abs(*dataDir)
	fmt.Printf("done in %s; run: shardsearch --data-dir %s shards discover\n",
		time.Since(start).Round(time.Millisecond), abs)
}

func docs(rng *rand.Rand, n int) []shardtest.Doc {
	out := make([]shardtest.Doc, 0, n)
	for i := 0; i < n; i++ {
		typ := types[rng.Intn(len(types))]
		first := words[rng.Intn(len(words))]
		title := strings.ToUpper(first[:1]) + first[1:] + " " + words[rng.Intn(len(words))]
		body := make([]string, 20+rng.Intn(80))
		for j := range body {
			body[j] = words[rng.Intn(len(words))]
		}
		content := strings.Join(body, " ")
		docType := typ
		if typ == "eml" {
			docType = "message"
		}
		out = append(out, shardtest.Doc{
			Path:     fmt.Sprintf("folder-%d/%s-%04d.%s", rng.Intn(5), strings.ReplaceAll(strings.ToLower(title), " ", "-"), i, typ),
			Title:    title,
			Type:     docType,
			Author:   authors[rng.Intn(len(authors))],
			Content:  content,
			Size:     int64(len(content)),
			Modified: time.Date(2015+rng.Intn(10), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC),
		})
	}
	return out
}
