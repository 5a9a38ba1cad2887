// Package main provides the slatekv-shell CLI for poking at a store.
//
// Usage:
//
//	slatekv-shell --path=<path> [--url=<object-store-url>] <command> [args]
//
// Commands:
//
//	get <key>            Print the value stored under key
//	put <key> <value>    Store a value
//	delete <key>         Remove a key
//	scan [start [end]]   List entries in [start, end)
//	flush                Force memory-resident state to durable storage
//	manifests            List manifest versions
//	checkpoints          List checkpoints
//	checkpoint           Create a checkpoint
//	gc                   Run one garbage collection pass
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/slatekv/slatekv"
)

var (
	path       = flag.String("path", "", "Store path (required)")
	url        = flag.String("url", "", "Object store URL (empty = in-memory)")
	durability = flag.String("durability", "memory", "Read durability: memory or remote")
	ttl        = flag.Duration("ttl", 0, "TTL for put (0 = no expiry)")
	name       = flag.String("name", "", "Checkpoint name")
	lifetime   = flag.Duration("lifetime", 0, "Checkpoint lifetime (0 = never expires)")
	minAge     = flag.Duration("min_age", 0, "GC minimum artifact age (0 = engine defaults)")
	limit      = flag.Int("limit", 0, "Limit scan output (0 = unlimited)")
	help       = flag.Bool("help", false, "Print help")
)

func main() {
	flag.Parse()

	if *help || flag.NArg() == 0 {
		printUsage()
		return
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "Error: --path flag is required")
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "get":
		err = cmdGet(args)
	case "put":
		err = cmdPut(args)
	case "delete":
		err = cmdDelete(args)
	case "scan":
		err = cmdScan(args)
	case "flush":
		err = cmdFlush()
	case "manifests":
		err = cmdManifests()
	case "checkpoints":
		err = cmdCheckpoints()
	case "checkpoint":
		err = cmdCreateCheckpoint()
	case "gc":
		err = cmdGC()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("slatekv-shell --path=<path> [--url=<url>] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  get <key>            Print the value stored under key")
	fmt.Println("  put <key> <value>    Store a value")
	fmt.Println("  delete <key>         Remove a key")
	fmt.Println("  scan [start [end]]   List entries in [start, end)")
	fmt.Println("  flush                Force state to durable storage")
	fmt.Println("  manifests            List manifest versions")
	fmt.Println("  checkpoints          List checkpoints")
	fmt.Println("  checkpoint           Create a checkpoint")
	fmt.Println("  gc                   Run one garbage collection pass")
	fmt.Println()
	flag.PrintDefaults()
}

func readOptions() (*slatekv.ReadOptions, error) {
	d, err := slatekv.ParseDurability(*durability)
	if err != nil {
		return nil, err
	}
	return &slatekv.ReadOptions{Durability: d}, nil
}

func cmdGet(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: get <key>")
	}
	ropts, err := readOptions()
	if err != nil {
		return err
	}
	return slatekv.With(*path, &slatekv.Options{URL: *url}, func(db *slatekv.Database) error {
		value, found, err := db.GetWithOptions([]byte(args[0]), ropts)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("key %q not found", args[0])
		}
		fmt.Printf("%s\n", value)
		return nil
	})
}

func cmdPut(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: put <key> <value>")
	}
	var popts *slatekv.PutOptions
	if *ttl > 0 {
		popts = &slatekv.PutOptions{TTL: *ttl}
	}
	return slatekv.With(*path, &slatekv.Options{URL: *url}, func(db *slatekv.Database) error {
		return db.PutWithOptions([]byte(args[0]), []byte(args[1]), popts, nil)
	})
}

func cmdDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <key>")
	}
	return slatekv.With(*path, &slatekv.Options{URL: *url}, func(db *slatekv.Database) error {
		return db.Delete([]byte(args[0]))
	})
}

func cmdScan(args []string) error {
	var start, end []byte
	if len(args) > 0 {
		start = []byte(args[0])
	}
	if len(args) > 1 {
		end = []byte(args[1])
	}
	return slatekv.With(*path, &slatekv.Options{URL: *url}, func(db *slatekv.Database) error {
		it, err := db.Scan(start, end)
		if err != nil {
			return err
		}
		defer it.Close()

		count := 0
		for {
			e, err := it.Next()
			if err != nil {
				return err
			}
			if e == nil {
				break
			}
			fmt.Printf("%s => %s\n", e.Key, e.Value)
			count++
			if *limit > 0 && count >= *limit {
				break
			}
		}
		fmt.Printf("%d entries\n", count)
		return nil
	})
}

func cmdFlush() error {
	return slatekv.With(*path, &slatekv.Options{URL: *url}, func(db *slatekv.Database) error {
		return db.Flush()
	})
}

func cmdManifests() error {
	return slatekv.WithAdmin(*path, &slatekv.AdminOptions{URL: *url}, func(adm *slatekv.Admin) error {
		manifests, err := adm.ListManifests(0, 0)
		if err != nil {
			return err
		}
		for _, m := range manifests {
			fmt.Printf("manifest %d: seq=%d tables=%d size=%d created=%s\n",
				m.ID, m.Sequence, m.Tables, m.SizeBytes, m.CreatedAt.Format(time.RFC3339))
		}
		return nil
	})
}

func cmdCheckpoints() error {
	return slatekv.WithAdmin(*path, &slatekv.AdminOptions{URL: *url}, func(adm *slatekv.Admin) error {
		checkpoints, err := adm.ListCheckpoints(*name)
		if err != nil {
			return err
		}
		for _, cp := range checkpoints {
			expires := "never"
			if cp.ExpireTime != nil {
				expires = cp.ExpireTime.Format(time.RFC3339)
			}
			fmt.Printf("checkpoint %s: manifest=%d name=%q expires=%s\n",
				cp.ID, cp.ManifestID, cp.Name, expires)
		}
		return nil
	})
}

func cmdCreateCheckpoint() error {
	return slatekv.WithAdmin(*path, &slatekv.AdminOptions{URL: *url}, func(adm *slatekv.Admin) error {
		cp, err := adm.CreateCheckpoint(&slatekv.CheckpointOptions{
			Name:     *name,
			Lifetime: *lifetime,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created checkpoint %s at manifest %d\n", cp.ID, cp.ManifestID)
		return nil
	})
}

func cmdGC() error {
	return slatekv.WithAdmin(*path, &slatekv.AdminOptions{URL: *url}, func(adm *slatekv.Admin) error {
		return adm.RunGC(&slatekv.GCOptions{MinAge: *minAge})
	})
}
