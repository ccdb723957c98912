// bench-hibernation measures heap memory before and after Hibernate() calls
// on a store filled with random interval sets.
//
// Usage:
//
//	go run ./scripts/bench-hibernation --keys 50 --members 20000 \
//	  --profile-dir docs/profiles/iset-hibernation
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/Sumatoshi-tech/isetdb/pkg/store"
)

const (
	scoreRange = 1000000.0
	spanRange  = 1000.0
)

type heapSnapshot struct {
	label     string
	heapInUse uint64
	heapSys   uint64
	heapIdle  uint64
}

func main() {
	keys := flag.Int("keys", 50, "Number of interval set keys to fill")
	members := flag.Int("members", 20000, "Intervals per key")
	seed := flag.Int64("seed", 42, "Workload random seed")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")

	flag.Parse()

	if *profileDir == "" {
		log.Fatal("--profile-dir is required")
	}

	if err := os.MkdirAll(*profileDir, 0o755); err != nil {
		log.Fatalf("mkdir profile-dir: %v", err)
	}

	if *cpuProfile {
		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	var snapshots []heapSnapshot

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			heapIdle:  m.HeapIdle,
		})
		log.Printf("  [heap] %-30s inuse=%6.1f MB  sys=%6.1f MB  idle=%6.1f MB",
			label, float64(m.HeapInuse)/1e6, float64(m.HeapSys)/1e6, float64(m.HeapIdle)/1e6)
	}

	writeHeapProfile := func(name string) {
		runtime.GC()
		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	rng := rand.New(rand.NewSource(*seed))
	db := store.New()

	takeSnapshot("before_fill")
	writeHeapProfile("heap_before_fill.prof")

	log.Printf("filling %d keys with %d intervals each", *keys, *members)

	for k := range *keys {
		key := fmt.Sprintf("set%d", k)

		set, err := db.EnsureIntervalSet(key)
		if err != nil {
			log.Fatalf("ensure %s: %v", key, err)
		}

		for i := range *members {
			low := rng.Float64() * scoreRange
			high := low + rng.Float64()*spanRange

			if _, err := set.Add(low, high, fmt.Sprintf("m%d", i)); err != nil {
				log.Fatalf("add to %s: %v", key, err)
			}
		}
	}

	takeSnapshot("after_fill")
	writeHeapProfile("heap_after_fill.prof")

	for _, key := range db.Keys() {
		if err := db.Hibernate(key); err != nil {
			log.Fatalf("hibernate %s: %v", key, err)
		}
	}

	takeSnapshot("after_hibernate")
	writeHeapProfile("heap_after_hibernate.prof")

	// Accessing a key transparently boots it.
	for _, key := range db.Keys() {
		if _, err := db.IntervalSet(key); err != nil {
			log.Fatalf("boot %s: %v", key, err)
		}
	}

	takeSnapshot("after_boot")
	writeHeapProfile("heap_after_boot.prof")

	fmt.Println()
	fmt.Println("=== Heap Memory Timeline ===")
	fmt.Printf("%-30s %10s %10s %10s\n", "Phase", "InUse(MB)", "Sys(MB)", "Idle(MB)")
	fmt.Println("------------------------------+----------+----------+----------")

	for _, s := range snapshots {
		fmt.Printf("%-30s %10.1f %10.1f %10.1f\n",
			s.label, float64(s.heapInUse)/1e6, float64(s.heapSys)/1e6, float64(s.heapIdle)/1e6)
	}

	fmt.Println()
	fmt.Println("=== Hibernation Memory Delta ===")

	fill := findSnapshot(snapshots, "after_fill")
	hibernated := findSnapshot(snapshots, "after_hibernate")

	if fill != nil && hibernated != nil {
		delta := float64(fill.heapInUse) - float64(hibernated.heapInUse)
		fmt.Printf("heap released by hibernate: %.1f MB (%.1f%%)\n",
			delta/1e6, 100*delta/float64(fill.heapInUse))
	}
}

func findSnapshot(snapshots []heapSnapshot, label string) *heapSnapshot {
	for i := range snapshots {
		if snapshots[i].label == label {
			return &snapshots[i]
		}
	}

	return nil
}
