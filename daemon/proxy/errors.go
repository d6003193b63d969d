package proxy

import (
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/pkg/errors"
)

func invalidParamf(format string, args ...any) error {
	return errors.Wrapf(cerrdefs.ErrInvalidArgument, format, args...)
}

// upstreamWrapf marks err as an upstream availability failure so the
// HTTP layer answers with a gateway status instead of a plain 500.
func upstreamWrapf(err error, format string, args ...any) error {
	return errors.Wrapf(fmt.Errorf("%w: %w", cerrdefs.ErrUnavailable, err), format, args...)
}
