package highlight

// Batcher defaults.
const (
	DefaultWindow   = 3
	DefaultMaxChars = 2000
)

// Batcher groups highlighted rows into chunks with an adaptive window. A
// chunk closes once it holds Window rows, but while its text is shorter than
// MaxChars the window grows by one row at a time. Every chunk except the
// last holds at least Window rows.
type Batcher struct {
	Window   int
	MaxChars int
}

// NewBatcher creates a Batcher, using the defaults for non-positive values.
func NewBatcher(window, maxChars int) Batcher {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return Batcher{Window: window, MaxChars: maxChars}
}

// Chunks partitions rows into consecutive chunks, preserving order. The text
// length of a chunk counts each row plus its newline separator.
func (b Batcher) Chunks(rows []string) [][]string {
	window := b.Window
	if window <= 0 {
		window = DefaultWindow
	}
	maxChars := b.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var chunks [][]string
	var current []string
	count, limit, length := 0, window, 0

	for _, row := range rows {
		current = append(current, row)
		count++
		length += len(row) + 1

		if count == limit && length < maxChars {
			limit++
		}
		if count >= limit {
			chunks = append(chunks, current)
			current = nil
			count, limit, length = 0, window, 0
		}
	}

	if count != 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
