package rpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tracmeta/metacore/internal/svcerr"
)

// toStatus translates a *svcerr.Error (or any other error) into a gRPC
// status code: InvalidArgument for InputValidation/WrongItemType, NotFound for
// MissingItem, AlreadyExists for DuplicateItem, FailedPrecondition for
// VersionConflict/VersionValidation, DeadlineExceeded for
// DeadlineExceeded, Unavailable for TransientStorage surfaced past the
// DAL's retry cap, Internal otherwise. The underlying cause is never
// included in the status message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch svcerr.Of(err) {
	case svcerr.KindInputValidation, svcerr.KindWrongItemType:
		code = codes.InvalidArgument
	case svcerr.KindMissingItem:
		code = codes.NotFound
	case svcerr.KindDuplicateItem:
		code = codes.AlreadyExists
	case svcerr.KindVersionConflict, svcerr.KindVersionValidation:
		code = codes.FailedPrecondition
	case svcerr.KindDeadlineExceeded:
		code = codes.DeadlineExceeded
	case svcerr.KindTransientStorage:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
