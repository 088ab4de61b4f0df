package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	colorBar     = "#5470c6"
	colorFinal   = "#91cc75"
	chartWidth   = "960px"
	chartHeight  = "480px"
	chartPageTtl = "Von Frey 50% paw-withdrawal threshold"
)

// writeChart 渲染每条成功序列的阈值柱状图，并叠加 Xf 对应刺激丝克重。失败行不出现在图中。
func writeChart(w io.Writer, rep *Report, lang Language) error {
	h := headers[lang]
	labels := make([]string, 0, len(rep.Records))
	thresholds := make([]opts.BarData, 0, len(rep.Records))
	finals := make([]opts.LineData, 0, len(rep.Records))
	for _, rec := range rep.Records {
		est := rec.Estimate
		if est == nil {
			continue
		}
		labels = append(labels, rec.Sequence)
		thresholds = append(thresholds, opts.BarData{
			Value:     roundFloat(est.ThresholdGrams, thresholdPlaces),
			ItemStyle: &opts.ItemStyle{Color: colorBar},
		})
		finals = append(finals, opts.LineData{Value: est.FinalWeight})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: chartPageTtl,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: h.Threshold,
			Subtitle: fmt.Sprintf("%vg-%vg, median #%d, delta %s, %s/%s",
				rep.Range.MinWeight, rep.Range.MaxWeight, rep.Range.MedianIndex,
				round(rep.Range.Delta, deltaPlaces), rep.DeltaMode, rep.TerminalMode),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: h.Sequence}),
		charts.WithYAxisOpts(opts.YAxis{Name: "g"}),
	)
	bar.SetXAxis(labels).AddSeries(h.Threshold, thresholds)

	line := charts.NewLine()
	line.SetXAxis(labels).AddSeries(h.FinalWeight, finals,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorFinal, Width: 2}))
	bar.Overlap(line)

	page := components.NewPage()
	page.PageTitle = chartPageTtl
	page.AddCharts(bar)
	return page.Render(w)
}
