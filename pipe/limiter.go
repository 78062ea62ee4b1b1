package pipe

// Unbounded is the limit value meaning "all remaining rows".
const Unbounded = -1

// LimiterPipe returns a window of rows: up to limit rows starting at
// offset, in the current order.
type LimiterPipe struct {
	limit  int
	offset int
}

// NewLimiterPipe returns a limiter with no limit and no offset.
func NewLimiterPipe() *LimiterPipe {
	return &LimiterPipe{limit: Unbounded}
}

// SetLimit sets the maximum number of rows. Negative values mean
// unbounded.
func (p *LimiterPipe) SetLimit(limit int) {
	if limit < 0 {
		limit = Unbounded
	}
	p.limit = limit
}

// SetOffset sets how many rows to skip. Negative values are treated as 0.
func (p *LimiterPipe) SetOffset(offset int) {
	if offset < 0 {
		offset = 0
	}
	p.offset = offset
}

// Limit returns the configured limit.
func (p *LimiterPipe) Limit() int {
	return p.limit
}

// Offset returns the configured offset.
func (p *LimiterPipe) Offset() int {
	return p.offset
}

// Process implements Pipe. Windows beyond the available rows are empty.
func (p *LimiterPipe) Process(rows Rows) (Rows, error) {
	if p.offset >= len(rows) {
		return Rows{}, nil
	}
	end := len(rows)
	if p.limit != Unbounded && p.limit < end-p.offset {
		end = p.offset + p.limit
	}
	out := make(Rows, end-p.offset)
	copy(out, rows[p.offset:end])
	return out, nil
}
