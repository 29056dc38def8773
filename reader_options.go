package sas7bdat

import "github.com/halvorsen/sas7bdat/internal/options"

// ReaderOption configures a Reader at construction time (Open/OpenReader).
type ReaderOption = options.Option[*Reader]

// WithCharsetOverride forces row decoding to use name's charset instead of
// whatever the header's own FileEncoding field declares. Column names,
// labels and other metadata text are decoded with the declared encoding,
// since they are parsed before options are applied. Some
// SAS7BDAT files carry a missing or wrong encoding declaration; this lets a
// caller who knows the true encoding correct for it.
func WithCharsetOverride(name string) ReaderOption {
	return options.NoError[*Reader](func(r *Reader) {
		r.charsetOverride = name
	})
}
