package memory

// Entry is a key/value pair. Keys are /-separated paths and values are raw
// bytes.
type Entry struct {
	Key   string
	Value []byte
}
