package pipe

import "fmt"

// MapFunc transforms a row. It may replace the record, change the key, or
// both; it must not return a row with a nil record.
type MapFunc func(row Row) (Row, error)

// MapperPipe applies its functions in registration order, each one
// receiving the output of the previous.
type MapperPipe struct {
	mappers []MapFunc
}

// NewMapperPipe returns an empty mapper stage.
func NewMapperPipe() *MapperPipe {
	return &MapperPipe{}
}

// Add appends a mapper.
func (p *MapperPipe) Add(fn MapFunc) {
	p.mappers = append(p.mappers, fn)
}

// Len returns the number of registered mappers.
func (p *MapperPipe) Len() int {
	return len(p.mappers)
}

// Process implements Pipe.
func (p *MapperPipe) Process(rows Rows) (Rows, error) {
	out := make(Rows, len(rows))
	for i, row := range rows {
		for _, fn := range p.mappers {
			mapped, err := fn(row)
			if err != nil {
				return nil, fmt.Errorf("mapping row %q: %w", row.Key, err)
			}
			row = mapped
		}
		out[i] = row
	}
	return out, nil
}
