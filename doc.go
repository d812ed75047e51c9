// Package containers implements composable binary codecs ("containers").
// Every container turns a Go value into bytes and back, reporting how many
// bytes it used and how those bytes split across its parts.
//
// Variants:
//   - FixedStruct: a tuple packed with a struct-layout format ("<4s2H").
//   - Integer: one 1, 2, 4 or 8 byte integer.
//   - LengthPrefixedString, TerminatedString: text in a named encoding.
//   - Array, LengthPrefixedArray: repeated elements, fixed or open count.
//   - Row: a heterogeneous tuple of element containers.
//   - OrderedDictionary: key/value Rows presented as an *OrderedMap.
//   - Custom: any user implementation of Contract.
//
// Fixed containers know their encoded size up front (DataSize). Variable
// containers learn it while decoding:
//
//	r, err := c.Decode(buf, false) // consume a prefix of buf
//	rest := buf[r.DataSize:]
//
// Decode(buf, true) asserts buf holds exactly one encoded value.
//
// Results:
//
//	Result.Value    canonical Go value (Tuple for fixed sequences, []any otherwise)
//	Result.Data     the exact encoded bytes
//	Result.SubSize  size tree, e.g. (4, (2, 2)) for a length prefix and two shorts
//
// Containers are immutable and safe for concurrent use.
package containers
