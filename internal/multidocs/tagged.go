package multidocs

// TaggedResult pairs one instance's hook result with that instance's ID.
type TaggedResult[T any] struct {
	ID    string `json:"id"`
	Value T      `json:"content"`
}

// Tag wraps v with the instance ID.
func Tag[T any](id string, v T) TaggedResult[T] {
	return TaggedResult[T]{ID: id, Value: v}
}

// Content is the aggregated LoadContent result: one entry per instance that
// produced content, in configuration order.
type Content[C any] []TaggedResult[*C]

// Find returns the content loaded by the instance with the given ID.
func (c Content[C]) Find(id string) (*C, bool) {
	for _, tr := range c {
		if tr.ID == id {
			return tr.Value, true
		}
	}
	return nil, false
}

// IDs returns the instance IDs present in c, in order.
func (c Content[C]) IDs() []string {
	ids := make([]string, len(c))
	for i, tr := range c {
		ids[i] = tr.ID
	}
	return ids
}
