// Package errors provides examples of structured error handling.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeConfig, "catapi connector requires 'api_key' in options")
	err = err.WithDetail("connector", "catapi")

	fmt.Println(err.Error())

	// Output:
	// config: catapi connector requires 'api_key' in options
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeResponseFormat, "failed to decode votes response").
		WithDetail("table", "votes")

	if errors.IsType(err, errors.ErrorTypeResponseFormat) {
		fmt.Println("response format error")
	}

	// Output:
	// response format error
}

// ExampleNewAPIError shows how callers recover the upstream status code.
func ExampleNewAPIError() {
	err := errors.Wrap(errors.NewAPIError("images", 404, "not found"), errors.ErrorTypeConnection, "read failed")

	code, ok := errors.StatusCode(err)
	fmt.Println(code, ok)
	fmt.Println(errors.IsType(err, errors.ErrorTypeAPI))

	// Output:
	// 404 true
	// true
}

// ExampleUnsupportedTable demonstrates the error returned for unknown tables.
func ExampleUnsupportedTable() {
	err := errors.UnsupportedTable("dogs")
	fmt.Println(err)

	// Output:
	// unsupported_table: unsupported table: "dogs"
}
