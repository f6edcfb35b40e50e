package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"github.com/chiashi-lab/RamanCalibrator/algorithms/stats"
	"github.com/chiashi-lab/RamanCalibrator/calibration"
	"github.com/chiashi-lab/RamanCalibrator/export"
	"github.com/chiashi-lab/RamanCalibrator/session"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func f2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func addInputFlags(cmd *cobra.Command, in *inputs, withRef bool) {
	cmd.Flags().StringVar(&in.raw, "raw", "", "Raw data: map document (.json) or two-column spectrum")
	cmd.Flags().StringVar(&in.family, "family", "renishaw", "Instrument family for spectrum files: renishaw or raman488")
	cmd.Flags().StringVar(&in.bg, "bg", "", "Background measurement to subtract")
	cmd.Flags().BoolVar(&in.crr, "crr", false, "Use the cosmic-ray rejected view")
	cmd.MarkFlagRequired("raw")
	if withRef {
		cmd.Flags().StringVar(&in.ref, "ref", "", "Reference spectrum of a standard")
		cmd.Flags().StringVar(&in.material, "material", "", "Reference material (default: taken from the reference file name)")
		cmd.Flags().IntVar(&in.degree, "degree", 0, "Polynomial degree (default: from config)")
		cmd.Flags().StringArrayVar(&in.windows, "window", nil, "Manual assignment lo:hi=true, repeatable")
	}
}

func newMaterialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "materials",
		Short: "List the reference materials and their catalogued peaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := calibration.DefaultCatalog()
			data := pterm.TableData{{"Material", "Peaks (cm-1)"}}
			for _, m := range catalog.Materials() {
				positions, err := catalog.Positions(m)
				if err != nil {
					return err
				}
				data = append(data, []string{string(m), common.ReprFloats(positions)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
}

func printFailures(report *calibration.AssignmentReport) {
	for _, we := range report.Skipped {
		pterm.Warning.Printfln("skipped %s", we)
	}
	for _, we := range report.Failures {
		pterm.Warning.Printfln("no peak: %s", we)
	}
}

func printCalibration(out *session.CalibratedAxis) error {
	if out.Report != nil {
		printFailures(out.Report)
	}
	residuals := out.Model.Residuals()
	data := pterm.TableData{{"Window", "Fitted", "True", "Residual", "Note"}}
	for i, a := range out.Assignments {
		note := ""
		if a.Fallback {
			note = "window maximum"
		}
		data = append(data, []string{a.Window.String(), f2(a.Fitted), f2(a.True), f2(residuals[i]), note})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	coeffs := make([]string, len(out.Model.Coefficients()))
	for i, c := range out.Model.Coefficients() {
		coeffs[i] = strconv.FormatFloat(c, 'g', 10, 64)
	}
	pterm.Info.Printfln("coefficients (ascending): %s", strings.Join(coeffs, ", "))
	pterm.Success.Printfln("calibration: %s", out.Provenance)
	return nil
}

func newCalibrateCmd() *cobra.Command {
	var in inputs
	var plotPath, normalize string
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Fit the wavenumber correction from a reference spectrum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.ref == "" {
				return fmt.Errorf("--ref is required")
			}
			pcfg := export.DefaultPlotConfig()
			norm, err := common.ParseNormalization(normalize)
			if err != nil {
				return err
			}
			pcfg.Normalization = norm
			s, out, err := openSession(in)
			if err != nil {
				return err
			}
			if err := printCalibration(out); err != nil {
				return err
			}
			if plotPath == "" {
				return nil
			}
			fig, err := s.CalibrationFigure()
			if err != nil {
				return err
			}
			if err := export.SaveCalibrationPlot(plotPath, pcfg, fig); err != nil {
				return err
			}
			pterm.Success.Printfln("plot written to %s", plotPath)
			return nil
		},
	}
	addInputFlags(cmd, &in, true)
	cmd.Flags().StringVar(&plotPath, "plot", "", "Write a calibration plot (png, svg or pdf)")
	cmd.Flags().StringVar(&normalize, "normalize", "minmax", "Plot intensity scaling: minmax, peak or zscore")
	return cmd
}

// intensityStyle buckets a value between min and max into five colours
func intensityStyle(value, min, max float64) *pterm.Style {
	if max <= min || math.IsNaN(value) {
		return pterm.NewStyle(pterm.FgGray)
	}
	switch r := (value - min) / (max - min); {
	case r < 0.2:
		return pterm.NewStyle(pterm.BgBlue, pterm.FgWhite)
	case r < 0.4:
		return pterm.NewStyle(pterm.BgCyan, pterm.FgBlack)
	case r < 0.6:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgBlack)
	case r < 0.8:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	default:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	}
}

// renderGrid draws the map with row 0 at the bottom. Colours span the
// clip..100-clip percentiles.
func renderGrid(grid common.Grid2D, clip float64) string {
	p := stats.NewPercentiles()
	lo, hi, err := p.Range(grid.Data, clip, 100-clip)
	if err != nil {
		lo, hi = 0, 0
	}
	var b strings.Builder
	for r := grid.Rows - 1; r >= 0; r-- {
		fmt.Fprintf(&b, "%4d ", r)
		for c := 0; c < grid.Cols; c++ {
			b.WriteString(intensityStyle(grid.At(r, c), lo, hi).Sprint("  "))
		}
		b.WriteByte('\n')
	}
	sum, err := p.Summarize(grid.Data)
	if err != nil {
		b.WriteString("no finite values")
		return b.String()
	}
	fmt.Fprintf(&b, "min %s  max %s  median %s  iqr %s", f2(sum.Min), f2(sum.Max), f2(sum.Median), f2(sum.IQR()))
	if sum.NaN > 0 {
		fmt.Fprintf(&b, "  (%d empty)", sum.NaN)
	}
	return b.String()
}

func newMapCmd() *cobra.Command {
	var in inputs
	var lo, hi float64
	var preset int
	var xlsxPath, pngPath string
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Integrate a wavenumber window over every pixel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, out, err := openSession(in)
			if err != nil {
				return err
			}
			if out != nil {
				pterm.Info.Printfln("calibration: %s", out.Provenance)
			}
			if preset >= 0 {
				ranges := s.MapRanges()
				if preset >= len(ranges) {
					return fmt.Errorf("preset %d: only %d ranges configured", preset, len(ranges))
				}
				lo, hi = ranges[preset][0], ranges[preset][1]
			}
			grid, err := s.MapIntensity(lo, hi)
			if err != nil {
				return err
			}

			clip := s.Config().Export.MapClip
			title := fmt.Sprintf("%g-%g cm-1", lo, hi)
			pterm.DefaultBox.WithTitle(title).WithTitleTopLeft().Println(renderGrid(grid, clip))

			if pngPath != "" {
				pcfg := export.DefaultPlotConfig()
				pcfg.MapClip = clip
				if err := export.SaveMapPlot(pngPath, pcfg, title, grid); err != nil {
					return err
				}
				pterm.Success.Printfln("map plot written to %s", pngPath)
			}
			if xlsxPath != "" {
				if err := s.AddAllToSaveList(); err != nil {
					return err
				}
				if err := s.ExportWorkbook(xlsxPath, session.MapWindow{Lo: lo, Hi: hi}); err != nil {
					return err
				}
				pterm.Success.Printfln("workbook written to %s", xlsxPath)
			}
			return nil
		},
	}
	addInputFlags(cmd, &in, true)
	cmd.Flags().Float64Var(&lo, "lo", 510, "Window start (cm-1, inclusive)")
	cmd.Flags().Float64Var(&hi, "hi", 530, "Window end (cm-1, exclusive)")
	cmd.Flags().IntVar(&preset, "preset", -1, "Use a configured map range by index instead of --lo/--hi")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write spectra and the map to an xlsx workbook")
	cmd.Flags().StringVar(&pngPath, "png", "", "Write a heat map image")
	return cmd
}

func newExportCmd() *cobra.Command {
	var in inputs
	var outDir, xlsxPath string
	var all, overwrite bool
	var pixels []string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write per-pixel spectra as text files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, out, err := openSession(in)
			if err != nil {
				return err
			}
			if out == nil {
				pterm.Warning.Println("no reference given, exporting the uncalibrated axis")
			}

			if all {
				if err := s.AddAllToSaveList(); err != nil {
					return err
				}
			}
			for _, p := range pixels {
				px, err := parsePixel(p)
				if err != nil {
					return err
				}
				if err := s.AddToSaveList(px.Row, px.Col); err != nil {
					return err
				}
			}
			if len(s.SaveList()) == 0 {
				if err := s.AddToSaveList(0, 0); err != nil {
					return err
				}
			}

			if outDir != "" {
				res, err := s.ExportText(outDir, overwrite)
				if err != nil {
					return err
				}
				for _, p := range res.Skipped {
					pterm.Warning.Printfln("%s exists, skipped (use --overwrite)", p)
				}
				pterm.Success.Printfln("%d spectra written to %s", len(res.Written), outDir)
			}
			if xlsxPath != "" {
				if err := s.ExportWorkbook(xlsxPath); err != nil {
					return err
				}
				pterm.Success.Printfln("workbook written to %s", xlsxPath)
			}
			if outDir == "" && xlsxPath == "" {
				return fmt.Errorf("nothing to write: give --out or --xlsx")
			}
			return nil
		},
	}
	addInputFlags(cmd, &in, true)
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory for text files")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write an xlsx workbook")
	cmd.Flags().BoolVar(&all, "all", false, "Export every pixel")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().StringArrayVar(&pixels, "pixel", nil, "Pixel row,col to export, repeatable")
	return cmd
}
