// Package datasource defines the read capability consumed by the extraction
// adapter. Sources yield raw bytes; format parsing lives in internal/parser.
package datasource

import (
	"context"
	"io"
)

// Source opens a raw byte stream for one dataset location.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
