package types

// Photo references an image stored on the image host.
type Photo struct {
	// Key identifies the object on the image host and is used to delete it.
	Key string `json:"key"`

	// URL is the public HTTPS address of the image.
	URL string `json:"url"`
}
