// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pdiddy/word2md/pkg/types"
)

// lazyConverter builds its Converter on the first Convert call.
type lazyConverter struct {
	build func() (Converter, error)

	once sync.Once
	conv Converter
	err  error
}

// Lazy returns a Converter that calls build on the first Convert and reuses
// the result for later calls. A build failure is returned from every call
// and wraps types.ErrConversion.
func Lazy(build func() (Converter, error)) Converter {
	return &lazyConverter{build: build}
}

func (l *lazyConverter) Convert(ctx context.Context, docPath, outDir string) (*types.ConversionResult, error) {
	l.once.Do(func() {
		l.conv, l.err = l.build()
		if l.err != nil && !errors.Is(l.err, types.ErrConversion) {
			l.err = fmt.Errorf("%w: %w", types.ErrConversion, l.err)
		}
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.conv.Convert(ctx, docPath, outDir)
}
