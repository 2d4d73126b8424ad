package port

// DocumentDecoder turns raw document bytes into the text handed to extraction.
type DocumentDecoder interface {
	Text(name string, data []byte) (string, error)
}
