package core

// ColumnType is the closed set from spec §1/§4.5.
type ColumnType string

const (
	TypeNumeric ColumnType = "numeric"
	TypeMoney   ColumnType = "money"
	TypeDate    ColumnType = "date"
	TypeAlpha   ColumnType = "alpha"
	TypeVarchar ColumnType = "varchar"
	TypeCode    ColumnType = "code"
	TypeMixed   ColumnType = "mixed"
	TypeUnknown ColumnType = "unknown"
)

// ColumnTypeInfo is the spec §3 ColumnTypeInfo struct.
type ColumnTypeInfo struct {
	InferredType    ColumnType
	DetectedFormat  string // dates only, e.g. "YYYYMMDD"
	NullCount       int64
	ErrorCount      int64
	WarningCount    int64
	DistinctCount   int64
	CardinalityRatio float64 // distinct_count / non_null_count
	SampleValues    []string // bounded reservoir, <= 100
	Confidence      float64  // [0,1]
}

// Quantiles keys mirror spec §3's fixed quantile map.
type Quantiles struct {
	P01, P05, P25, P50, P75, P95, P99 float64
}

// NumericStats covers both the numeric and money type-specific sections.
type NumericStats struct {
	Min, Max, Mean, Median, StdDev float64
	Quantiles                      Quantiles
	Histogram                      []int64 // fixed bin count over [min,max]
	GaussianPValue                 *float64

	// money-specific
	TwoDecimalOK            bool
	DisallowedSymbolsFound  bool
	ValidCount, InvalidCount int64
}

// DateStats covers the date type-specific section.
type DateStats struct {
	MinDate, MaxDate   string // YYYY-MM-DD
	SpanDays           int64
	DetectedFormat     string
	FormatConsistent   bool
	ByYear             map[string]int64
	ByYearMonth        map[string]int64
	ByDayOfWeek        [7]int64
	InvalidCount       int64
}

// StringStats covers alpha/varchar/code type-specific sections.
type StringStats struct {
	MinLength, AvgLength, MaxLength float64
	HasNonASCII                     bool
	TopK                            []ValueCount
}

// ValueCount is one Top-K entry, ordered descending by Count, ties broken
// lexicographically (spec §5 "Ordering guarantees").
type ValueCount struct {
	Value string
	Count int64
}

// ColumnProfile is the spec §3 ColumnProfile: a superset of
// ColumnTypeInfo with type-specific statistics.
type ColumnProfile struct {
	ColumnTypeInfo

	Numeric *NumericStats
	Date    *DateStats
	String  *StringStats
}

// DistinctCountResult is the spec §3 DistinctCountResult.
type DistinctCountResult struct {
	DistinctCount    int64
	TotalCount       int64
	NullCount        int64 // unquoted-empty field
	EmptyCount       int64 // quoted-empty field ("")
	CardinalityRatio float64
	Frequencies      []ValueCount // bounded by memory, or top-K if spilled
	StorageMethod    string       // "memory" | "disk"
	IsExact          bool         // invariant: always true
}

// CandidateKey is the spec §3 CandidateKey.
type CandidateKey struct {
	Columns        []string
	Score          float64
	DistinctRatio  float64
	NullRatioSum   float64
	InvalidCount   int64 // tie-break: lower wins
}

// DuplicateResult is the spec §3 DuplicateResult.
type DuplicateResult struct {
	HasDuplicates    bool
	DuplicateCount   int64
	DuplicateRows    int64
	NullKeyCount     int64
	DuplicateExamples []DuplicateExample
	HashMethod       string
}

type DuplicateExample struct {
	Hash  string
	Count int64
}
