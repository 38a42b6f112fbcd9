package queue

// MemoryBytes is an in-memory ByteQueue. It exists mainly to test the
// Serializable adapter and as a cheap backing for short-lived crawls
// that still want serialized (process-independent) queue contents.
type MemoryBytes struct {
	records [][]byte
	lifo    bool
}

// NewMemoryBytesFIFO creates an in-memory FIFO byte queue.
func NewMemoryBytesFIFO() *MemoryBytes {
	return &MemoryBytes{}
}

// NewMemoryBytesLIFO creates an in-memory LIFO byte queue.
func NewMemoryBytesLIFO() *MemoryBytes {
	return &MemoryBytes{lifo: true}
}

// Push appends a record.
func (q *MemoryBytes) Push(record []byte) error {
	q.records = append(q.records, record)
	return nil
}

// Pop removes and returns the next record, or (nil, nil) when empty.
func (q *MemoryBytes) Pop() ([]byte, error) {
	if len(q.records) == 0 {
		return nil, nil
	}

	if q.lifo {
		last := len(q.records) - 1
		record := q.records[last]
		q.records[last] = nil
		q.records = q.records[:last]
		return record, nil
	}

	record := q.records[0]
	q.records[0] = nil
	q.records = q.records[1:]
	return record, nil
}

// Len returns the number of stored records.
func (q *MemoryBytes) Len() int {
	return len(q.records)
}

// Close drops all stored records.
func (q *MemoryBytes) Close() error {
	q.records = nil
	return nil
}
