package sitearchive

import (
	_ "embed"
	"net/http"
)

var (
	//go:embed html/404.html
	notFoundPage []byte

	//go:embed html/file-not-found.html
	memberMissingPage []byte

	//go:embed html/failed-to-read-file.html
	readFailedPage []byte
)

func fallbackResponse(status int, page []byte) *Response {
	return newResponse(status, page, "text/html; charset=utf-8", "")
}

func notFoundResponse() *Response {
	return fallbackResponse(http.StatusNotFound, notFoundPage)
}

func memberMissingResponse() *Response {
	return fallbackResponse(http.StatusNotFound, memberMissingPage)
}

func internalErrorResponse() *Response {
	return fallbackResponse(http.StatusInternalServerError, readFailedPage)
}
