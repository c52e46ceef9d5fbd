package model

// Chunk is a bounded slice of a source document as stored in the vector
// index. It never touches mysql; ids are assigned at ingestion time and are
// stable for the lifetime of the chunk.
type Chunk struct {
	ID       string `json:"id"`
	Title    string `json:"title"`    // source document title
	Content  string `json:"content"`  // non-empty chunk text
	Category string `json:"category"` // specialty tag, e.g. "cardiology"
	Ordinal  int    `json:"ordinal"`  // position within the source document
}
