package enrich

import (
	"errors"
	"fmt"
)

var (
	ErrNoText       = errors.New("no text provided")
	ErrNoFile       = errors.New("no file provided")
	ErrInvalidImage = errors.New("invalid image file")
)

// InputError 表示请求本身有问题，不会调用任何分类器或外部服务
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// InferenceError 表示分类器失败；没有可用的后备标签，整个请求失败
type InferenceError struct {
	Modality string
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s classifier failed: %v", e.Modality, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
