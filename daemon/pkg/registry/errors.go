package registry

import (
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/pkg/errors"
)

func invalidParamf(format string, args ...any) error {
	return errors.Wrapf(cerrdefs.ErrInvalidArgument, format, args...)
}

func invalidParamWrapf(err error, format string, args ...any) error {
	return errors.Wrapf(fmt.Errorf("%w: %w", cerrdefs.ErrInvalidArgument, err), format, args...)
}
