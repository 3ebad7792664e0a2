package libol

import "fmt"

type Err struct {
	Code    int
	Message string
}

func NewErr(message string, v ...interface{}) *Err {
	return &Err{
		Message: fmt.Sprintf(message, v...),
	}
}

func (e *Err) Error() string {
	return e.Message
}
