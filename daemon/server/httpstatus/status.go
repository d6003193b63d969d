package httpstatus

import (
	"context"
	"fmt"
	"net/http"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/docker/distribution/registry/api/errcode"
)

type causer interface {
	Cause() error
}

// FromError retrieves status code from error message.
func FromError(err error) int {
	if err == nil {
		log.G(context.TODO()).WithError(err).Error("unexpected HTTP error handling")
		return http.StatusInternalServerError
	}

	var statusCode int

	// Note that the below functions are already checking the error causal chain for matches.
	switch {
	case cerrdefs.IsNotFound(err):
		statusCode = http.StatusNotFound
	case cerrdefs.IsInvalidArgument(err):
		statusCode = http.StatusBadRequest
	case cerrdefs.IsConflict(err):
		statusCode = http.StatusConflict
	case cerrdefs.IsUnauthorized(err):
		statusCode = http.StatusUnauthorized
	case cerrdefs.IsUnavailable(err):
		// Unavailable errors come from upstream hops, not this daemon.
		statusCode = http.StatusBadGateway
	case cerrdefs.IsPermissionDenied(err):
		statusCode = http.StatusForbidden
	case cerrdefs.IsNotModified(err):
		statusCode = http.StatusNotModified
	case cerrdefs.IsNotImplemented(err):
		statusCode = http.StatusNotImplemented
	case cerrdefs.IsInternal(err) || cerrdefs.IsDataLoss(err) || cerrdefs.IsDeadlineExceeded(err) || cerrdefs.IsCanceled(err):
		statusCode = http.StatusInternalServerError
	default:
		statusCode = statusCodeFromDistributionError(err)
		if statusCode != http.StatusInternalServerError {
			return statusCode
		}
		if e, ok := err.(causer); ok {
			return FromError(e.Cause())
		}

		log.G(context.TODO()).WithFields(log.Fields{
			"module":     "api",
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
		}).Debug("FIXME: Got an API for which error does not match any expected type!!!")
	}

	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	return statusCode
}

// statusCodeFromDistributionError returns status code according to registry errcode
// code is loosely based on errcode.ServeJSON() in docker/distribution
func statusCodeFromDistributionError(err error) int {
	switch errs := err.(type) {
	case errcode.Errors:
		if len(errs) < 1 {
			return http.StatusInternalServerError
		}
		if _, ok := errs[0].(errcode.ErrorCoder); ok {
			return statusCodeFromDistributionError(errs[0])
		}
	case errcode.ErrorCoder:
		return errs.ErrorCode().Descriptor().HTTPStatusCode
	case causer:
		return statusCodeFromDistributionError(errs.Cause())
	}
	return http.StatusInternalServerError
}
