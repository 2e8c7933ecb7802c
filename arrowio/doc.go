// Package arrowio converts between frame tables and Apache Arrow records.
//
// ToRecord and FromRecord are the in-memory boundary; RecordSource scans
// records already held by the caller, and IPCSource scans an Arrow IPC
// stream file. WriteIPC writes a table as an IPC stream.
//
// Type mapping:
//
//	int64     <-> int64 (int8..int32 and unsigned ints up to uint32 read as int64)
//	float64   <-> float64 (float32 reads as float64)
//	utf8      <-> utf8 (large_utf8 reads as utf8)
//	bool      <-> bool
//	date      <-> date32 (date64 reads as date)
//	datetime  <-> timestamp[us, UTC] (any unit reads as datetime)
//	null      <-> null
//
// Other Arrow types fail with frame.ErrTypeMismatch.
package arrowio
