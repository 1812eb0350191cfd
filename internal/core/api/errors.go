package api

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error mapping is done inline in handlers.
// Requests the compiler cannot start on map to INVALID_ARGUMENT.
// Compiler diagnostics are not errors: the response is OK with Diagnostics set.
// Render failures map to INTERNAL.
// Context timeouts map to DEADLINE_EXCEEDED.

func invalidArgument(format string, args ...any) error {
	return status.Error(codes.InvalidArgument, fmt.Sprintf(format, args...))
}
