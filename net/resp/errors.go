package resp

import (
	"net/http"

	"github.com/stemyke/node-backend-sub000/ecode"
)

// BadRequest indicates a bad request.
func BadRequest(message string, data ...any) *Exception {
	return newResponse(http.StatusBadRequest, ecode.RequestErr, message, data...)
}

// NotFound indicates that the requested resource is not found.
func NotFound(message string, data ...any) *Exception {
	return newResponse(http.StatusNotFound, ecode.NotFound, message, data...)
}

// InternalServer indicates a server error.
func InternalServer(message string, data ...any) *Exception {
	return newResponse(http.StatusInternalServerError, ecode.ServerErr, message, data...)
}

// FromError converts err into an exception. Coded errors keep their code
// and message; anything else becomes a server error without details.
func FromError(err error) *Exception {
	code := ecode.Code(err)
	if code == ecode.OK || code == ecode.ServerErr {
		return InternalServer(ecode.Text(ecode.ServerErr))
	}
	return newResponse(ecode.ToHTTPStatus(code), code, err.Error())
}
