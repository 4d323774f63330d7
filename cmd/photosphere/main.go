package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"os/signal"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/robosharks/photosphere/internal/camera"
	"github.com/robosharks/photosphere/internal/capture"
	"github.com/robosharks/photosphere/internal/config"
	"github.com/robosharks/photosphere/internal/mosaic"
	"github.com/robosharks/photosphere/internal/pose"
	"github.com/robosharks/photosphere/internal/store"
	"github.com/robosharks/photosphere/internal/tui"
)

var (
	configFile string
	dataDir    string
	preset     string
	unattended bool
	simulate   bool
	cameraIdx  int
	timeout    float64
	// Sim-only fault injection, by capture index.
	simIncomplete []int
	simFault      []int
	// Profile plot width.
	plotWidth int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "photosphere",
		Short: "pose-sequenced panorama capture, stitch and view",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use rig preset")

	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "walk the pose grid and persist one frame per pose",
		RunE:  runCapture,
	}
	addCaptureFlags(captureCmd)

	stitchCmd := &cobra.Command{
		Use:   "stitch",
		Short: "concatenate persisted frames into the mosaic",
		RunE:  runStitch,
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "pan the stitched mosaic interactively",
		RunE:  runView,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "capture, stitch and view in one go",
		RunE:  runAll,
	}
	addCaptureFlags(runCmd)

	camerasCmd := &cobra.Command{
		Use:   "cameras",
		Short: "enumerate available cameras",
		RunE:  runCameras,
	}
	camerasCmd.Flags().BoolVar(&simulate, "simulate", false, "use the built-in synthetic camera")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list rig presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Printf("  %-10s %d tilts x %d yaws\n", name, len(p.Tilts), len(p.Yaws))
			}
			return nil
		},
	}

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "plot mean column luminance across the mosaic",
		RunE:  runProfile,
	}
	profileCmd.Flags().IntVar(&plotWidth, "width", 100, "plot width in columns")

	rootCmd.AddCommand(captureCmd, stitchCmd, viewCmd, runCmd, camerasCmd, presetsCmd, profileCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&unattended, "unattended", false, "capture without operator pacing")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "use the built-in synthetic camera")
	cmd.Flags().IntVar(&cameraIdx, "camera", 0, "camera index")
	cmd.Flags().Float64Var(&timeout, "timeout", config.DefaultAcquireTimeout, "per-frame acquisition timeout in seconds")
	cmd.Flags().IntSliceVar(&simIncomplete, "sim-incomplete-at", nil, "sim only: deliver incomplete frames at these capture indices")
	cmd.Flags().IntSliceVar(&simFault, "sim-fault-at", nil, "sim only: fail the driver at these capture indices")
}

// loadConfig resolves preset, config file and flags, in increasing
// precedence, the same way the rest of the flag surface works: a flag only
// wins if it was actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg.Tilts = p.Tilts
		cfg.Yaws = p.Yaws
	}

	if cmd.InheritedFlags().Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if f := cmd.Flags(); f.Changed("unattended") {
		cfg.Unattended = unattended
	}
	if f := cmd.Flags(); f.Changed("simulate") {
		cfg.Simulate = simulate
	}
	if f := cmd.Flags(); f.Changed("camera") {
		cfg.Camera = cameraIdx
	}
	if f := cmd.Flags(); f.Changed("timeout") {
		cfg.AcquireTimeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openSystem(cfg *config.Config) (camera.System, error) {
	if cfg.Simulate {
		return camera.NewSimSystem(camera.SimOptions{
			IncompleteAt: indexSet(simIncomplete),
			FaultAt:      indexSet(simFault),
		}), nil
	}
	// Vendor drivers are external collaborators and not linked into this
	// build; the sim system is the only backend shipped here.
	return nil, fmt.Errorf("no camera driver in this build; rerun with --simulate")
}

func indexSet(indices []int) map[int]bool {
	if len(indices) == 0 {
		return nil
	}
	set := make(map[int]bool, len(indices))
	for _, i := range indices {
		set[i] = true
	}
	return set
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := captureGrid(cfg)
	if err != nil {
		return err
	}
	printCaptureSummary(res)
	return nil
}

func captureGrid(cfg *config.Config) (*capture.Result, error) {
	grid, err := pose.Build(cfg.Tilts, cfg.Yaws)
	if err != nil {
		return nil, err
	}

	st := store.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}

	sys, err := openSystem(cfg)
	if err != nil {
		return nil, err
	}
	defer sys.Close()

	cams := sys.Cameras()
	if len(cams) == 0 {
		return nil, camera.ErrNoCameras
	}
	if cfg.Camera >= len(cams) {
		return nil, fmt.Errorf("camera index %d out of range (%d cameras)", cfg.Camera, len(cams))
	}

	session := capture.New(grid, cams[cfg.Camera], st)
	if cfg.AcquireTimeout > 0 {
		session.SetAcquireTimeout(time.Duration(cfg.AcquireTimeout * float64(time.Second)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Unattended {
		session.AddObserver(cliObserver{total: len(grid)})
		return session.Run(ctx)
	}
	return tui.RunCapture(ctx, session, grid)
}

// cliObserver prints per-pose progress in unattended runs.
type cliObserver struct {
	total int
}

func (o cliObserver) PoseStarted(i int, p pose.Pose) {
	fmt.Printf("[%d/%d] capturing %s\n", i+1, o.total, p)
}

func (o cliObserver) PosePersisted(i int, p pose.Pose, path string) {
	fmt.Printf("[%d/%d] saved %s\n", i+1, o.total, path)
}

func (o cliObserver) PoseFailed(i int, p pose.Pose, err error) {
	fmt.Fprintf(os.Stderr, "[%d/%d] failed %s: %v\n", i+1, o.total, p, err)
}

func printCaptureSummary(res *capture.Result) {
	fmt.Printf("\ncapture finished: %d persisted, %d failed\n", len(res.Persisted), len(res.Failed))
	for _, f := range res.Failed {
		fmt.Printf("  failed %s: %v\n", f.Pose, f.Err)
	}
	if len(res.Failed) > 0 {
		fmt.Println("re-run failed poses before stitching, or expect gaps in the mosaic")
	}
}

func runStitch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	_, err = stitch(cfg)
	return err
}

func stitch(cfg *config.Config) (*mosaic.Mosaic, error) {
	st := store.New(cfg.DataDir)
	m, err := mosaic.NewBuilder(st).Build(cfg.Tilts, cfg.Yaws)
	if err != nil {
		return nil, err
	}
	if err := st.SaveMosaic(m.Image); err != nil {
		return nil, err
	}
	fmt.Printf("stitched %d frames into %d rows -> %s (%dx%d)\n",
		len(m.Used), m.Rows, st.MosaicPath(), m.Image.Bounds().Dx(), m.Image.Bounds().Dy())
	if len(m.Skipped) > 0 {
		fmt.Printf("skipped %d poses with no usable frame\n", len(m.Skipped))
	}
	return m, nil
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := store.New(cfg.DataDir)
	img, err := st.LoadMosaic()
	if err != nil {
		return fmt.Errorf("no stitched mosaic at %s (run stitch first): %w", st.MosaicPath(), err)
	}
	return tui.RunViewer(toRGBA(img))
}

func runAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := captureGrid(cfg)
	if err != nil {
		return err
	}
	printCaptureSummary(res)

	m, err := stitch(cfg)
	if err != nil {
		return err
	}
	return tui.RunViewer(m.Image)
}

func runCameras(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sys, err := openSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	cams := sys.Cameras()
	if len(cams) == 0 {
		return camera.ErrNoCameras
	}
	for i, c := range cams {
		fmt.Printf("  [%d] %s\n", i, c.ID())
	}
	return nil
}

// runProfile plots mean column luminance across the mosaic, a quick check
// that exposure stayed uniform across the pan.
func runProfile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := store.New(cfg.DataDir)
	img, err := st.LoadMosaic()
	if err != nil {
		return fmt.Errorf("no stitched mosaic at %s (run stitch first): %w", st.MosaicPath(), err)
	}

	profile := columnLuminance(toRGBA(img))
	if len(profile) > plotWidth {
		profile = downsample(profile, plotWidth)
	}
	fmt.Println(asciigraph.Plot(profile,
		asciigraph.Height(12),
		asciigraph.Caption("mean column luminance (left to right across the pan)")))
	return nil
}

func columnLuminance(img *image.RGBA) []float64 {
	b := img.Bounds()
	out := make([]float64, b.Dx())
	for x := 0; x < b.Dx(); x++ {
		var sum float64
		for y := 0; y < b.Dy(); y++ {
			c := img.RGBAAt(x, y)
			sum += 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
		}
		out[x] = sum / float64(b.Dy())
	}
	return out
}

func downsample(vals []float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := i * len(vals) / n
		hi := (i + 1) * len(vals) / n
		if hi <= lo {
			hi = lo + 1
		}
		var sum float64
		for _, v := range vals[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
