// Package sdrf holds the in-memory model of an SDRF table and a
// tab-separated reader for it.
//
// A Table keeps the header row exactly as read (after optional lower-casing),
// including repeated headers for multiple-cardinality columns such as
// comment[modification parameters]. Row data is exposed positionally (Cell)
// or by header name (Values, Record), where each header maps to the ordered
// values of its occurrences.
package sdrf
