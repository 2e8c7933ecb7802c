// Package reader provides the file-backed scan sources of a lazy query:
// delimited text and Apache Parquet.
//
// Both source types implement query.Source. Schema reads as little as
// possible (the CSV header plus an inference sample, or a parquet footer),
// and Read materializes the whole file as a frame.Table.
//
// # CSV
//
// Column types are inferred from the first DefaultInferRows rows, trying
// int64, float64, bool, date and datetime before falling back to utf8:
//
//	src := reader.NewCSVSource("data/product.csv", reader.CSVOptions{})
//	rate, err := query.Scan(src).
//	    DropNulls().
//	    Select(query.Alias(query.Div(query.Sub(query.Col("unit_price"), query.Col("unit_cost")), query.Col("unit_price")), "rate")).
//	    Mean().
//	    Collect()
//
// Files named *.gz, *.zst, *.sz or *.lz4 are decompressed on the fly.
//
// # Parquet
//
// A parquet source accepts a single path, a glob pattern or an http(s) URL:
//
//	query.Scan(reader.NewParquetSource("logs/2024-*.parquet"))
//	query.Scan(reader.NewParquetSource("https://example.com/data.parquet"))
//
// Rows read through a glob carry a "_file" column with their source path.
// At most MaxGlobFiles files may match. Remote files are read with HTTP
// range requests, so only the footer and the needed pages are fetched.
//
// # Schema Introspection
//
// ExtractSchemaInfo lists every leaf column of a parquet file together with
// its physical and logical types and the frame type a scan produces:
//
//	infos, err := reader.ExtractSchemaInfo("data.parquet")
//	for _, info := range infos {
//	    fmt.Printf("%s: %s (%s)\n", info.Name, info.Type, info.FrameType)
//	}
//
// The package uses github.com/parquet-go/parquet-go for parquet decoding and
// howett.net/ranger for HTTP range reads.
package reader
