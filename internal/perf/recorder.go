// Package perf accumulates per-session scrape metrics and renders them as
// charts. It is observational only: nothing on the scrape path depends on it.
package perf

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/pkg/models"
)

// Recorder is an append-only metrics accumulator. One orchestrator per
// process is assumed, so it carries no locking.
type Recorder struct {
	samples []models.SessionMetrics
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log appends the finalized metrics of one scrape session.
func (r *Recorder) Log(m models.SessionMetrics) {
	r.samples = append(r.samples, m)
	log.Info().
		Dur("elapsed", m.Elapsed).
		Int("requests", m.Requests).
		Int("errors", m.Errors).
		Int("data_points", m.DataPoints).
		Float64("success_rate", m.SuccessRate).
		Int("response_size", m.ResponseBytes).
		Bool("screenshot", m.ScreenshotTaken).
		Int64("node_count", m.NodeCount).
		Msg("Session metrics recorded")
}

// Len returns the number of recorded sessions.
func (r *Recorder) Len() int {
	return len(r.samples)
}

// Samples returns the recorded sessions in insertion order.
func (r *Recorder) Samples() []models.SessionMetrics {
	return r.samples
}

// Render writes the performance charts to an HTML file and returns a human
// readable confirmation. An empty recorder renders nothing.
func (r *Recorder) Render(outputFile string) (string, error) {
	if len(r.samples) == 0 {
		return "Aucune donnée pour générer les graphiques", nil
	}

	requests := make([]int, len(r.samples))
	execTimes := make([]opts.ScatterData, len(r.samples))
	sizes := make([]opts.ScatterData, len(r.samples))
	proxies := make([]opts.LineData, len(r.samples))
	nodes := make([]opts.LineData, len(r.samples))
	for i, s := range r.samples {
		requests[i] = s.Requests
		execTimes[i] = opts.ScatterData{Value: s.Elapsed.Seconds()}
		sizes[i] = opts.ScatterData{Value: s.ResponseBytes}
		proxies[i] = opts.LineData{Value: s.ProxyCount}
		nodes[i] = opts.LineData{Value: s.NodeCount}
	}

	timeChart := charts.NewScatter()
	timeChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Temps d'exécution en fonction du nombre de requêtes"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Nombre de requêtes"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Temps (secondes)"}),
	)
	timeChart.SetXAxis(requests).AddSeries("Temps d'exécution", execTimes)

	sizeChart := charts.NewScatter()
	sizeChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Volume des données échangées en fonction du nombre de requêtes"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Nombre de requêtes"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Taille des réponses (octets)"}),
	)
	sizeChart.SetXAxis(requests).AddSeries("Taille des réponses", sizes)

	nodeChart := charts.NewLine()
	nodeChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Proxies et nœuds parcourus en fonction du nombre de requêtes"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Nombre de requêtes"}),
	)
	nodeChart.SetXAxis(requests).
		AddSeries("Proxies (fixe)", proxies).
		AddSeries("Nœuds parcourus", nodes)

	page := components.NewPage()
	page.AddCharts(timeChart, sizeChart, nodeChart)

	f, err := os.Create(outputFile)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("failed to render charts: %w", err)
	}

	return fmt.Sprintf("Graphiques de performance sauvegardés dans %s", outputFile), nil
}
