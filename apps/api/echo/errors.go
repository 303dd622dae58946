package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

var (
	errMissingToken   = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

var kindStatus = map[core.Kind]int{
	core.KindInvalidArgument: http.StatusBadRequest,
	core.KindUnauthorized:    http.StatusForbidden,
	core.KindNotFound:        http.StatusNotFound,
	core.KindConflict:        http.StatusConflict,
	core.KindInvalidState:    http.StatusUnprocessableEntity,
	core.KindTransient:       http.StatusServiceUnavailable,
}

// ErrorResponse is the body of every error response except field validation errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	IDs   []int  `json:"ids,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message interface{}

			httpErr *echo.HTTPError
			valErrs validator.ValidationErrors
			valErr  *core.ValidationError
			domErr  *core.Error
		)

		switch {
		case errors.As(err, &httpErr):
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			message = ErrorResponse{Error: fmt.Sprint(httpErr.Message)}
		case errors.As(err, &valErrs):
			code = http.StatusBadRequest
			message = core.TranslateErrors(valErrs, translator)
		case errors.As(err, &valErr):
			code = http.StatusBadRequest
			if valErr.Fields != nil {
				fldErrs := make(map[string]string, len(valErr.Fields))
				for _, fErr := range valErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = ErrorResponse{Error: valErr.Error()}
			}
		case errors.Is(err, user.ErrInvalidCredentials):
			code = http.StatusBadRequest
			message = ErrorResponse{Error: user.ErrInvalidCredentials.Error()}
		case errors.As(err, &domErr) && domErr.Kind != core.KindInternal:
			code = kindStatus[domErr.Kind]
			message = ErrorResponse{Error: domErr.Error(), Kind: domErr.Kind.String(), IDs: domErr.IDs}
			if domErr.Kind == core.KindTransient {
				logger.Warn(fmt.Sprintf("transient failure: %v", err), err)
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = ErrorResponse{Error: msg}

			args := []interface{}{errors.Wrap(err, msg)}
			if actor, aErr := getContextActor(ctx); aErr == nil {
				args = append(args, actor)
			}
			logger.Error(fmt.Sprintf("%s: %v", msg, err), args...)

			if ctx.Echo().Debug {
				message = ErrorResponse{Error: err.Error()}
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
