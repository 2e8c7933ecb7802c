// Package output writes collected tables in the formats the CLI and job
// runner support.
//
// Every formatter implements Formatter and writes a whole frame.Table:
//
//   - CSV: header row in column order, nulls as empty cells, text that a
//     spreadsheet would evaluate as a formula is quoted
//   - JSON Lines: one object per row, keys in column order
//   - Table: an aligned text grid for terminals, with column types in the
//     header and the table shape in the caption
//   - Parquet: a single file with optional columns
//
// # Basic Usage
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(table); err != nil {
//	    log.Fatal(err)
//	}
//
// # Files
//
// WriteFile picks the format from the file extension when none is given
// and compresses the output when the name ends in .gz, .zst, .sz or .lz4:
//
//	err := output.WriteFile("out/rates.csv.gz", table, "")
package output
