// Package counter counts non-overlapping occurrences of a byte pattern,
// first inside a single buffer and then across a whole file read in
// fixed-size chunks.
package counter

import "bytes"

// CountInChunk counts non-overlapping, left-to-right occurrences of pattern
// in chunk. After a match at offset p the search resumes at p+len(pattern).
//
// lastMatchStart is the offset of the last match. It is 0 when count is 0,
// so callers must use count to decide whether anything matched.
func CountInChunk(chunk, pattern []byte) (count, lastMatchStart int) {
	if len(pattern) == 0 {
		return 0, 0
	}

	offset := 0
	for offset < len(chunk) {
		i := bytes.Index(chunk[offset:], pattern)
		if i < 0 {
			break
		}
		lastMatchStart = offset + i
		count++
		offset = lastMatchStart + len(pattern)
	}

	return count, lastMatchStart
}
