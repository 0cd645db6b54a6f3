// Package main renders a track timeline chart from a snapshot database.
// Each track becomes one horizontal bar spanning its frame range, so
// overlapping tracks and coverage gaps are visible at a glance.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
	sqlite "github.com/kestrel-vision/trackstudio/internal/annotation/storage/sqlite"
	"github.com/kestrel-vision/trackstudio/internal/version"
)

type config struct {
	DBPath      string
	SnapshotID  string
	Camera      string
	Output      string
	ShowVersion bool
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.DBPath, "db", "session.db", "path to the snapshot database")
	flag.StringVar(&cfg.SnapshotID, "snapshot", "", "snapshot id to chart (default: newest)")
	flag.StringVar(&cfg.Camera, "camera", "", "restrict to one camera (default: all)")
	flag.StringVar(&cfg.Output, "out", "timeline.html", "output HTML file")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()
	if cfg.ShowVersion {
		fmt.Printf("timeline-chart %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	snaps := sqlite.NewSnapshotStore(db)
	snapshotID := cfg.SnapshotID
	if snapshotID == "" {
		listed, err := snaps.List()
		if err != nil {
			log.Fatalf("list snapshots: %v", err)
		}
		if len(listed) == 0 {
			log.Fatal("no snapshots in database")
		}
		snapshotID = listed[0].SnapshotID
	}

	store, err := snaps.Load(snapshotID)
	if err != nil {
		log.Fatalf("load snapshot %s: %v", snapshotID, err)
	}

	cameras := store.Cameras()
	if cfg.Camera != "" {
		if !store.HasCamera(cfg.Camera) {
			log.Fatalf("snapshot %s has no camera %q", snapshotID, cfg.Camera)
		}
		cameras = []string{cfg.Camera}
	}

	labels, offsets, durations := timelineSeries(store, cameras)
	if len(labels) == 0 {
		log.Fatalf("snapshot %s has no tracks to chart", snapshotID)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Track Timeline",
			Width:     "1200px",
			Height:    fmt.Sprintf("%dpx", 120+24*len(labels)),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Track Timeline",
			Subtitle: fmt.Sprintf("snapshot=%s tracks=%d", snapshotID, len(labels)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "track"}),
	)
	bar.SetXAxis(labels)
	// Stacked pair: a transparent offset bar positions each visible
	// duration bar at the track's begin frame.
	bar.AddSeries("offset", offsets,
		charts.WithBarChartOpts(opts.BarChart{Stack: "interval"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "transparent"}),
	)
	bar.AddSeries("frames", durations,
		charts.WithBarChartOpts(opts.BarChart{Stack: "interval"}),
	)
	bar.XYReversal()

	out, err := os.Create(cfg.Output)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer out.Close()
	if err := bar.Render(out); err != nil {
		log.Fatalf("render chart: %v", err)
	}
	log.Printf("wrote %s (%d tracks)", cfg.Output, len(labels))
}

// timelineSeries flattens the store into per-bar labels and the stacked
// offset/duration values, ordered by camera then begin frame.
func timelineSeries(store *annotation.Store, cameras []string) (labels []string, offsets, durations []opts.BarData) {
	for _, camera := range cameras {
		for _, track := range store.OrderedTracks(camera) {
			labels = append(labels, fmt.Sprintf("%s/%d %s", camera, track.ID, track.Type()))
			offsets = append(offsets, opts.BarData{Value: track.Begin})
			durations = append(durations, opts.BarData{
				Value:   track.End - track.Begin + 1,
				Tooltip: &opts.Tooltip{Show: opts.Bool(true)},
			})
		}
	}
	return labels, offsets, durations
}
