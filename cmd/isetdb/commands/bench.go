package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/isetdb/pkg/iset"
)

// Bench workload defaults.
const (
	defaultBenchMembers = 100000
	defaultBenchQueries = 10000
	benchScoreRange     = 1000000.0
	benchSpanRange      = 1000.0
	benchSeed           = 42
)

// NewBenchCommand creates the synthetic workload command.
func NewBenchCommand() *cobra.Command {
	var (
		members int
		queries int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic interval-set workload and report throughput",
		Long: `Insert random intervals, run overlap queries against them, then
compress the arena and report sizes. The workload is deterministic for a
given seed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runBench(cobraCmd, members, queries, seed)
		},
	}

	cmd.Flags().IntVar(&members, "members", defaultBenchMembers, "Number of random intervals to insert")
	cmd.Flags().IntVar(&queries, "queries", defaultBenchQueries, "Number of overlap queries to run")
	cmd.Flags().Int64Var(&seed, "seed", benchSeed, "Workload random seed")

	return cmd
}

// runBench executes the three workload phases and prints a summary table.
func runBench(cmd *cobra.Command, members, queries int, seed int64) error {
	out := cmd.OutOrStdout()
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic workload, not crypto

	set := iset.NewSet()

	insertStart := time.Now()

	for i := range members {
		low := rng.Float64() * benchScoreRange
		high := low + rng.Float64()*benchSpanRange

		_, err := set.Add(low, high, fmt.Sprintf("m%d", i))
		if err != nil {
			return err
		}
	}

	insertElapsed := time.Since(insertStart)

	matched := 0
	queryStart := time.Now()

	for range queries {
		low := rng.Float64() * benchScoreRange
		high := low + rng.Float64()*benchSpanRange

		for range set.Overlap(low, high) {
			matched++
		}
	}

	queryElapsed := time.Since(queryStart)

	arenaSlots := set.ArenaSize()

	hibernateStart := time.Now()
	set.Hibernate()
	hibernateElapsed := time.Since(hibernateStart)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"PHASE", "OPS", "TIME", "RATE"})
	tbl.AppendRow(table.Row{
		"insert", humanize.Comma(int64(members)),
		insertElapsed.Round(time.Millisecond), opsPerSecond(members, insertElapsed),
	})
	tbl.AppendRow(table.Row{
		"overlap", humanize.Comma(int64(queries)),
		queryElapsed.Round(time.Millisecond), opsPerSecond(queries, queryElapsed),
	})
	tbl.AppendRow(table.Row{
		"hibernate", "1",
		hibernateElapsed.Round(time.Millisecond), "",
	})

	fmt.Fprintln(out, tbl.Render())
	fmt.Fprintf(out, "matched %s intervals across %s queries\n",
		humanize.Comma(int64(matched)), humanize.Comma(int64(queries)))

	if set.Hibernated() {
		raw := uint64(arenaSlots) * nodeBytes //nolint:gosec // arena length is small

		fmt.Fprintf(out, "arena %s compressed to %s\n",
			humanize.Bytes(raw), humanize.Bytes(uint64(set.HibernatedSize()))) //nolint:gosec // size is small
	}

	return nil
}

// opsPerSecond formats a throughput figure for the summary table.
func opsPerSecond(ops int, elapsed time.Duration) string {
	if elapsed <= 0 {
		return ""
	}

	return humanize.Comma(int64(float64(ops)/elapsed.Seconds())) + "/s"
}
