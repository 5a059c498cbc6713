package aggregator

// DefaultMaxStreams is the venue's per-connection stream limit.
const DefaultMaxStreams = 1024

// Partition splits an ordered pair list into chunks of at most size streams,
// one chunk per connection. Order is preserved within and across chunks and
// every input pair lands in exactly one chunk. Empty input yields no chunks.
func Partition(pairs []string, size int) [][]string {
	if size <= 0 {
		size = DefaultMaxStreams
	}
	if len(pairs) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(pairs)+size-1)/size)
	for start := 0; start < len(pairs); start += size {
		end := start + size
		if end > len(pairs) {
			end = len(pairs)
		}
		out = append(out, pairs[start:end:end])
	}
	return out
}
