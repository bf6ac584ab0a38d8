package jsonprofile

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/NVIDIA/dprofile/core"
)

// csvMetricsTopK is the fixed top_value_N column count in the CSV
// metrics schema (spec §6).
const csvMetricsTopK = 10

// WriteCSVMetrics renders one row per column with the fixed schema of
// spec §6: column_name, type, null_count, distinct_count, distinct_pct,
// min_value, max_value, mean, median, stddev, min_length, max_length,
// avg_length, top_value_1, top_value_1_count, ..., top_value_10,
// top_value_10_count. Every field is defused against spreadsheet-
// formula injection before being written.
func WriteCSVMetrics(w io.Writer, header core.Header, profiles map[string]core.ColumnProfile) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cols := []string{"column_name", "type", "null_count", "distinct_count", "distinct_pct",
		"min_value", "max_value", "mean", "median", "stddev", "min_length", "max_length", "avg_length"}
	for i := 1; i <= csvMetricsTopK; i++ {
		cols = append(cols, "top_value_"+strconv.Itoa(i), "top_value_"+strconv.Itoa(i)+"_count")
	}
	if err := cw.Write(cols); err != nil {
		return err
	}

	for _, name := range header.Names {
		p := profiles[name]
		row := []string{
			name, string(p.InferredType),
			strconv.FormatInt(p.NullCount, 10),
			strconv.FormatInt(p.DistinctCount, 10),
			formatFloat(p.CardinalityRatio * 100),
		}
		if p.Numeric != nil {
			row = append(row, formatFloat(p.Numeric.Min), formatFloat(p.Numeric.Max),
				formatFloat(p.Numeric.Mean), formatFloat(p.Numeric.Median), formatFloat(p.Numeric.StdDev))
		} else {
			row = append(row, "", "", "", "", "")
		}
		if p.String != nil {
			row = append(row, formatFloat(p.String.MinLength), formatFloat(p.String.MaxLength), formatFloat(p.String.AvgLength))
		} else {
			row = append(row, "", "", "")
		}

		top := topValues(p)
		for i := 0; i < csvMetricsTopK; i++ {
			if i < len(top) {
				row = append(row, top[i].Value, strconv.FormatInt(top[i].Count, 10))
			} else {
				row = append(row, "", "")
			}
		}

		for i, field := range row {
			row[i] = defuseFormula(field)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func topValues(p core.ColumnProfile) []core.ValueCount {
	if p.String != nil {
		return p.String.TopK
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// defuseFormula prefixes a leading =, +, -, or @ with a single quote so
// spreadsheet software never interprets an exported field as a formula
// (spec §6).
func defuseFormula(s string) string {
	if s == "" {
		return s
	}
	if strings.IndexByte("=+-@", s[0]) >= 0 {
		return "'" + s
	}
	return s
}
