package client

import (
	"errors"
	"fmt"
)

// NetworkError - запрос не дошёл до сервера или ответ не был получен.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: сетевая ошибка: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError - сервер ответил статусом вне 2xx.
type ServerError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: сервер вернул %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: сервер вернул %d %s: %s", e.Op, e.Status, e.Code, e.Message)
}

// ParseError - неверная дата или тело ответа неожиданной формы.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: ошибка разбора: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsNotFound сообщает, что сервер не знает такой задачи.
func IsNotFound(err error) bool {
	var serverErr *ServerError
	return errors.As(err, &serverErr) && serverErr.Code == "NOT_FOUND"
}
