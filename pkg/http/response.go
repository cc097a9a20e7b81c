package http

import (
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/labstack/echo/v4"
)

func envelope(statusCode int) APIResponse {
	return APIResponse{
		Status:    statusCode,
		Message:   http.StatusText(statusCode),
		Timestamp: time.Now().UnixMilli(),
	}
}

// DataResponse writes data with statusCode as both the HTTP and the body status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	resp := envelope(statusCode)
	resp.Data = data
	return c.JSON(statusCode, resp)
}

// ErrorResponse writes errs under "errors".
func ErrorResponse(c echo.Context, statusCode int, errs interface{}) error {
	resp := envelope(statusCode)
	resp.Errors = errs
	return c.JSON(statusCode, resp)
}

// ListResponse writes one page of rows. rows must be a slice.
func ListResponse(c echo.Context, rows interface{}, total int64) error {
	count := 0
	if v := reflect.ValueOf(rows); v.Kind() == reflect.Slice {
		count = v.Len()
	}
	return DataResponse(c, http.StatusOK, &ListDataResponse{Rows: rows, Count: count, Total: total})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse is used for validation failures.
func BadRequestResponse(c echo.Context, errs []ValidationError) error {
	return ErrorResponse(c, http.StatusBadRequest, errs)
}

// AppErrorResponse writes err with its own status when it is an AppError and
// an opaque 500 otherwise.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorResponse(c, appErr.Status, []*AppError{appErr})
	}
	return ErrorResponse(c, http.StatusInternalServerError, []*AppError{InternalErrorf("something went wrong")})
}
