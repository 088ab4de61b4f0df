package report

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"vonfrey/internal/calibration"
	"vonfrey/internal/coefficient"
	"vonfrey/internal/threshold"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

const nineFibers = "克数\t序号\n" +
	"0.008\t1\n0.02\t2\n0.04\t3\n0.07\t4\n0.16\t5\n0.4\t6\n0.6\t7\n1.0\t8\n1.4\t9\n"

func buildReport(t *testing.T) *Report {
	t.Helper()
	cal, err := calibration.Load(strings.NewReader(nineFibers), calibration.LogCanonical)
	require.NoError(t, err)
	coef, err := coefficient.Load(strings.NewReader("测量结果\tk值\n0001\t0.5\n0110\t-0.2\n"))
	require.NoError(t, err)
	sel, err := threshold.Select(cal, 0.008, 1.4, threshold.DeltaByCount)
	require.NoError(t, err)
	in := threshold.Inputs{Selection: sel, Calibration: cal, Coefficients: coef, Terminal: threshold.TerminalSecondToLast}
	recs := in.EstimateAll([]string{"0001", "0011", "0110", "zz"})

	b := &Builder{
		Now:   func() time.Time { return time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC) },
		NewID: func() string { return "rep-1" },
	}
	return b.Build(sel, threshold.TerminalSecondToLast, 3, recs)
}

func TestBuildCounts(t *testing.T) {
	rep := buildReport(t)
	assert.Equal(t, "rep-1", rep.ID)
	assert.Len(t, rep.Records, 4)
	assert.Equal(t, 2, rep.Successes)
	assert.Equal(t, 2, rep.Failures)
	assert.Equal(t, 5, rep.Range.MedianIndex)
	assert.Equal(t, 9, rep.Range.Fibers)
	assert.Equal(t, int64(3), rep.TablesVer)

	sum := rep.Summary()
	assert.Equal(t, 4, sum.Sequences)
	assert.Equal(t, 1.4, sum.MaxWeight)
}

func TestEncodeCSVWithBOMAndChineseHeaders(t *testing.T) {
	rep := buildReport(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, Options{Format: FormatCSV, Language: LangZH, BOM: true}))

	raw := buf.String()
	require.True(t, strings.HasPrefix(raw, "\ufeff"))
	recs, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(raw, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 5)

	assert.Equal(t, []string{"反应序列", "最后刺激丝克重", "Xf（编号）", "k 值", "delta", "50% 缩足阈值（克）", "错误"}, recs[0])
	assert.Equal(t, "0001", recs[1][0])
	assert.Equal(t, "1", recs[1][1])
	assert.Equal(t, "4", recs[1][2])
	assert.Equal(t, "0.5", recs[1][3])
	assert.Equal(t, "", recs[1][6])

	assert.Equal(t, "0011", recs[2][0])
	assert.Equal(t, "k 值表中未找到该序列", recs[2][6])
	assert.Equal(t, "zz", recs[4][0], "raw text shown when nothing survives cleaning")
	assert.Equal(t, "序列过短", recs[4][6])
}

func TestEncodeTSVEnglishNoBOM(t *testing.T) {
	rep := buildReport(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, Options{Format: FormatTSV, Language: LangEN}))
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "sequence\tfinal_weight_g\txf\tk\tdelta\tthreshold_g\terror", first)
}

func TestEncodeJSONKeepsUnroundedIntermediates(t *testing.T) {
	rep := buildReport(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, Options{Format: FormatJSON}))

	body := buf.Bytes()
	require.True(t, gjson.ValidBytes(body))
	assert.Equal(t, "rep-1", gjson.GetBytes(body, "id").String())
	assert.Equal(t, rep.Range.Delta, gjson.GetBytes(body, "records.0.estimate.delta").Float())
	assert.Equal(t, rep.Records[0].Estimate.ThresholdGrams, gjson.GetBytes(body, "records.0.estimate.threshold_g").Float())
	assert.Equal(t, "unknown_sequence", gjson.GetBytes(body, "records.1.failure.kind").String())
	assert.False(t, gjson.GetBytes(body, "records.1.estimate").Exists())
}

func TestEncodeYAML(t *testing.T) {
	rep := buildReport(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, Options{Format: FormatYAML}))

	var decoded struct {
		ID      string `yaml:"id"`
		Records []struct {
			Sequence string `yaml:"sequence"`
		} `yaml:"records"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "rep-1", decoded.ID)
	require.Len(t, decoded.Records, 4)
	assert.Equal(t, "0110", decoded.Records[2].Sequence)
}

func TestEncodeHTMLChart(t *testing.T) {
	rep := buildReport(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, Options{Format: FormatHTML, Language: LangEN}))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "threshold_g")
	assert.Contains(t, html, "0110")
	assert.Contains(t, html, colorFinal)
}

func TestParseFormatAndLanguage(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	f, err = ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)

	assert.Equal(t, LangEN, ParseLanguage("EN"))
	assert.Equal(t, LangZH, ParseLanguage("de"))
	assert.Equal(t, "VonFrey_结果.csv", Filename(LangZH, FormatCSV))
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
}

func TestRoundingMatchesDisplayPrecision(t *testing.T) {
	assert.Equal(t, "3.602", round(3.60206, xfPlaces))
	assert.Equal(t, "0.2813", round(0.28125001, deltaPlaces))
	assert.Equal(t, "0.008", plain(0.008))
}

func TestOverflowingKBecomesErrorRow(t *testing.T) {
	cal, err := calibration.Load(strings.NewReader(nineFibers), calibration.LogCanonical)
	require.NoError(t, err)
	coef, err := coefficient.Load(strings.NewReader("测量结果\tk值\n0001\t1e308\n"))
	require.NoError(t, err)
	sel, err := threshold.Select(cal, 0.008, 1.4, threshold.DeltaByCount)
	require.NoError(t, err)
	in := threshold.Inputs{Selection: sel, Calibration: cal, Coefficients: coef, Terminal: threshold.TerminalSecondToLast}
	rep := NewBuilder().Build(sel, threshold.TerminalSecondToLast, 1, in.EstimateAll([]string{"0001"}))
	require.Equal(t, 1, rep.Failures)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, Options{Format: FormatCSV, Language: LangEN}))
	assert.Contains(t, buf.String(), "threshold out of numeric range")
}

func TestRoundingToleratesNonFinite(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, "+Inf", round(math.Inf(1), thresholdPlaces))
		assert.Equal(t, "NaN", plain(math.NaN()))
		assert.True(t, math.IsInf(roundFloat(math.Inf(-1), 4), -1))
	})
}
