// Command btreeindex_shell is an interactive shell over a single B+
// tree index: it opens or creates an index for a given relation and
// attribute offset and lets an operator issue insert/scan/stats
// commands against it directly, with no network layer in between.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/relindex/bptree/core/indexing/btree"
	"github.com/relindex/bptree/core/relation"
	"github.com/relindex/bptree/core/storage_engine/bufferpool"
	"github.com/relindex/bptree/core/storage_engine/diskmanager"
	"github.com/relindex/bptree/pkg/logger"
	"github.com/relindex/bptree/pkg/telemetry"
)

func openOrCreateRelation(path string, pageSize, recordSize, poolCapacity int) (*relation.Relation, error) {
	dm, err := diskmanager.Open(path, pageSize, false)
	if err != nil {
		if !errors.Is(err, diskmanager.ErrFileNotFound) {
			return nil, err
		}
		dm, err = diskmanager.Open(path, pageSize, true)
		if err != nil {
			return nil, err
		}
		pool := bufferpool.New(dm, poolCapacity)
		return relation.Create(pool, pageSize, recordSize)
	}
	pool := bufferpool.New(dm, poolCapacity)
	return relation.Open(pool, pageSize, recordSize, dm.FirstPageNo())
}

func main() {
	dir := flag.String("dir", ".", "directory holding the relation and index files")
	relationName := flag.String("relation", "students", "relation name the index is built over")
	attrByteOffset := flag.Int("offset", 0, "byte offset of the indexed int32 attribute within a record")
	recordSize := flag.Int("record-size", 16, "fixed record size of the relation, in bytes (must match the size the relation was created with)")
	logFormat := flag.String("log-format", "console", "log format: console or json")
	telemetryEnabled := flag.Bool("telemetry", false, "enable OpenTelemetry metrics/tracing")
	prometheusPort := flag.Int("prometheus-port", 9090, "port to expose /metrics on when telemetry is enabled")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Format: *logFormat, Component: "btreeindex-shell"})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	tel, shutdown, err := telemetry.New(telemetry.Config{
		Enabled:          *telemetryEnabled,
		ServiceName:      "btreeindex-shell",
		PrometheusPort:   *prometheusPort,
		TraceSampleRatio: 1.0,
	})
	if err != nil {
		log.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer shutdown(context.Background())

	relPath := fmt.Sprintf("%s/%s.tbl", *dir, *relationName)
	rel, err := openOrCreateRelation(relPath, btree.DefaultPageSize, *recordSize, 128)
	if err != nil {
		log.Fatal("failed to open relation", zap.Error(err))
	}

	cfg := btree.DefaultConfig()
	cfg.Dir = *dir
	idx, indexName, err := btree.Open(cfg, *relationName, int32(*attrByteOffset), btree.Integer, rel, log, tel)
	if err != nil {
		log.Fatal("failed to open index", zap.Error(err))
	}
	defer idx.Close()
	log.Info("index ready", zap.String("file", indexName))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "btreeindex> ",
		HistoryFile:     os.TempDir() + "/btreeindex_shell_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatal("failed to start shell", zap.Error(err))
	}
	defer rl.Close()

	fmt.Println("B+ tree index shell. Commands: insert <key> <page> <slot> | scan <lowOp> <low> <highOp> <high> | stats | exit")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error("readline error", zap.Error(err))
			break
		}

		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			fmt.Println("bye")
			break
		}

		ctx, span := tel.Tracer.Start(context.Background(), "shell.command")
		runCommand(ctx, log, idx, fields)
		span.End()
	}
}

func runCommand(_ context.Context, log *zap.Logger, idx *btree.Index, fields []string) {
	switch fields[0] {
	case "insert":
		if len(fields) != 4 {
			fmt.Println("usage: insert <key> <page> <slot>")
			return
		}
		key, err1 := strconv.ParseInt(fields[1], 10, 32)
		page, err2 := strconv.ParseUint(fields[2], 10, 32)
		slot, err3 := strconv.ParseUint(fields[3], 10, 16)
		if err1 != nil || err2 != nil || err3 != nil {
			fmt.Println("invalid arguments")
			return
		}
		rid := relation.RecordId{PageNumber: btree.PageId(page), SlotNumber: uint16(slot)}
		if err := idx.InsertEntry(int32(key), rid); err != nil {
			log.Error("insert failed", zap.Error(err))
			fmt.Println("error:", err)
			return
		}
		fmt.Println("ok")

	case "scan":
		if len(fields) != 5 {
			fmt.Println("usage: scan <lowOp> <low> <highOp> <high>, ops in {GT,GTE} for low and {LT,LTE} for high")
			return
		}
		lowOp, ok1 := parseOp(fields[1])
		low, err1 := strconv.ParseInt(fields[2], 10, 32)
		highOp, ok2 := parseOp(fields[3])
		high, err2 := strconv.ParseInt(fields[4], 10, 32)
		if !ok1 || !ok2 || err1 != nil || err2 != nil {
			fmt.Println("invalid arguments")
			return
		}
		if err := idx.StartScan(int32(low), lowOp, int32(high), highOp); err != nil {
			log.Error("scan failed", zap.Error(err))
			fmt.Println("error:", err)
			return
		}
		count := 0
		for {
			rid, err := idx.ScanNext()
			if err != nil {
				break
			}
			fmt.Printf("  rid=(%d,%d)\n", rid.PageNumber, rid.SlotNumber)
			count++
		}
		_ = idx.EndScan()
		fmt.Printf("%d results\n", count)

	case "stats":
		s := idx.Stats()
		fmt.Printf("buffer pool: hits=%d misses=%d evictions=%d\n", s.Hits, s.Misses, s.Evictions)

	case "help":
		fmt.Println("insert <key> <page> <slot> | scan <lowOp> <low> <highOp> <high> | stats | exit")

	default:
		fmt.Println("unknown command, type 'help'")
	}
}

func parseOp(s string) (btree.Operator, bool) {
	switch strings.ToUpper(s) {
	case "GT":
		return btree.GT, true
	case "GTE":
		return btree.GTE, true
	case "LT":
		return btree.LT, true
	case "LTE":
		return btree.LTE, true
	default:
		return 0, false
	}
}
