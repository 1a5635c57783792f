package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// APIError: отказ шлюза. Message/Description: текст брокера как есть.
type APIError struct {
	Method      string
	HTTPStatus  int
	Code        int64
	Message     string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Method, e.HTTPStatus, e.BrokerMessage())
}

// BrokerMessage: сообщение брокера без обвязки: "message (description)".
func (e *APIError) BrokerMessage() string {
	msg := strings.TrimSpace(e.Message)
	desc := strings.TrimSpace(e.Description)
	switch {
	case msg == "" && desc == "":
		return "empty response"
	case desc == "" || desc == msg:
		return msg
	case msg == "":
		return desc
	}
	return msg + " (" + desc + ")"
}

// тело ошибки: {"code":3,"message":"30042","description":"Not enough assets for a margin trade"}
func parseAPIError(method string, status int, body []byte) error {
	e := &APIError{Method: method, HTTPStatus: status}
	if !gjson.ValidBytes(body) {
		e.Message = strings.TrimSpace(string(body))
		return e
	}
	r := gjson.ParseBytes(body)
	e.Code = r.Get("code").Int()
	e.Message = r.Get("message").String()
	e.Description = r.Get("description").String()
	return e
}

// AsAPIError достаёт *APIError из цепочки.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
