package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path"

	"go-btree/config"
	"go-btree/pkg/bptree"
	"go-btree/pkg/buffer"
	"go-btree/pkg/disk"
	"go-btree/util/helpers"
)

var demoKeys = []uint64{1, 4, 6, 3, 7, 2, 5}
var demoVals = []string{"one", "two", "three", "four", "five", "six", "seven"}

func main() {
	configs := config.New()

	dir, err := os.MkdirTemp("", "btree-demo")
	if err != nil {
		fatal(err)
	}
	defer os.RemoveAll(dir)

	dm, err := disk.Open(path.Join(dir, configs.StorageConfig.Path))
	if err != nil {
		fatal(err)
	}

	pool := buffer.NewManager(dm, configs.StorageConfig.PoolSize)
	defer func() {
		if err := pool.Close(); err != nil {
			fmt.Println("error on closing pool:", err)
		}
	}()

	pages := bptree.PoolSource{Pool: pool}
	tree, err := bptree.Create(pages, nil)
	if err != nil {
		fatal(err)
	}

	fmt.Println("inserting...")
	for i, k := range demoKeys {
		if err := tree.Insert(pages, encodeKey(k), []byte(demoVals[i])); err != nil {
			fatalf("insert %d: %v\n", k, err)
		}
	}

	height, err := tree.Height(pages)
	if err != nil {
		fatal(err)
	}
	fmt.Println("tree height:", height)

	fmt.Println("searching...")
	for k := uint64(1); k <= 8; k++ {
		pair, found, err := tree.Search(pages, encodeKey(k))
		if err != nil {
			fatalf("search %d: %v\n", k, err)
		}
		if !found {
			fmt.Printf("key %d not found\n", k)
			continue
		}
		fmt.Printf("key %d => '%s'\n", k, preview(pair.Value))
	}
}

func encodeKey(k uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, k)
	return key
}

func preview(val []byte) string {
	return string(val[:helpers.Min(len(val), 32)])
}

func fatal(val interface{}) {
	fmt.Println(val)
	os.Exit(1)
}

func fatalf(format string, values ...interface{}) {
	fmt.Printf(format, values...)
	os.Exit(1)
}
