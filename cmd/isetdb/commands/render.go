package commands

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"
)

const (
	renderArgCount  = 1
	renderFilePerm  = 0o600
	chartWidth      = "1200px"
	chartHeight     = "600px"
	intervalStack   = "interval"
	offsetSeries    = "offset"
	intervalSeries  = "span"
	transparentFill = "transparent"
)

// ErrRenderNoOutput is returned when the --output flag is not set.
var ErrRenderNoOutput = errors.New("output file is required (use --output)")

// ErrRenderKeyMissing is returned when the requested key is not in the dataset.
var ErrRenderKeyMissing = errors.New("key not found in dataset")

// NewRenderCommand creates the dataset visualization command.
func NewRenderCommand() *cobra.Command {
	var (
		key    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "render <dataset.json>",
		Short: "Render the intervals of one key as an HTML chart",
		Long: `Render the intervals of one dataset key as a floating bar chart.

Each member becomes one bar spanning [low, high] on the value axis, in
ascending interval order.`,
		Args:          cobra.ExactArgs(renderArgCount),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			if output == "" {
				return ErrRenderNoOutput
			}

			return runRender(args[0], key, output)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Dataset key to render (default: first key in the file)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output HTML file")

	return cmd
}

// runRender loads the dataset and writes the chart for one key.
func runRender(datasetPath, key, output string) error {
	ds, err := ReadDataset(datasetPath)
	if err != nil {
		return err
	}

	if key == "" && len(ds.Keys) > 0 {
		key = ds.Keys[0].Key
	}

	dk := ds.FindKey(key)
	if dk == nil {
		return fmt.Errorf("%w: %q", ErrRenderKeyMissing, key)
	}

	chart := buildIntervalChart(dk)

	file, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, renderFilePerm)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	err = chart.Render(file)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

// buildIntervalChart renders intervals as floating bars: an invisible bar
// lifts each span to its low bound and a visible bar covers [low, high].
func buildIntervalChart(dk *DatasetKey) *charts.Bar {
	intervals := make([]DatasetInterval, len(dk.Intervals))
	copy(intervals, dk.Intervals)

	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].Low != intervals[j].Low {
			return intervals[i].Low < intervals[j].Low
		}

		return intervals[i].High > intervals[j].High
	})

	members := make([]string, 0, len(intervals))
	offsets := make([]opts.BarData, 0, len(intervals))
	spans := make([]opts.BarData, 0, len(intervals))

	for _, interval := range intervals {
		members = append(members, interval.Member)
		offsets = append(offsets, opts.BarData{Value: interval.Low})
		spans = append(spans, opts.BarData{
			Name:  fmt.Sprintf("[%g, %g]", interval.Low, interval.High),
			Value: interval.High - interval.Low,
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    dk.Key,
			Subtitle: fmt.Sprintf("%d intervals", len(intervals)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score"}),
	)

	bar.SetXAxis(members).
		AddSeries(offsetSeries, offsets,
			charts.WithBarChartOpts(opts.BarChart{Stack: intervalStack}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: transparentFill}),
		).
		AddSeries(intervalSeries, spans,
			charts.WithBarChartOpts(opts.BarChart{Stack: intervalStack}),
		)

	return bar
}
