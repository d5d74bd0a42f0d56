package httpapi

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/broady/apiservice"
)

// response is the envelope for successful JSON responses: {"result": ...}.
type response struct {
	Result any `json:"result"`
}

// errorResponse is the envelope for error responses: {"error": {...}}.
type errorResponse struct {
	Error *apiservice.Error `json:"error"`
}

func encodeErrorResponse(w io.Writer, err *apiservice.Error) error {
	return json.NewEncoder(w).Encode(errorResponse{Error: err})
}

const (
	contentTypeJSON = "application/json"
	contentTypeXML  = "application/xml"
	contentTypeText = "text/plain; charset=utf-8"
)

// ContentType returns the Content-Type written for a response mime type
// selected by the request. Unknown or empty values fall back to JSON.
func ContentType(mime string) string {
	switch strings.ToLower(mime) {
	case "xml", "application/xml", "text/xml":
		return contentTypeXML
	case "text", "plain", "text/plain":
		return contentTypeText
	default:
		return contentTypeJSON
	}
}

// renderResult encodes result in the format named by mime. JSON results are
// wrapped in the {"result": ...} envelope; XML and text results are written bare.
func renderResult(mime string, result any) (body []byte, contentType string, err error) {
	contentType = ContentType(mime)
	switch contentType {
	case contentTypeXML:
		body, err = xml.Marshal(result)
	case contentTypeText:
		if result != nil {
			body = []byte(fmt.Sprint(result))
		}
	default:
		body, err = json.Marshal(response{Result: result})
		body = append(body, '\n')
	}
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}
