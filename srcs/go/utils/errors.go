package utils

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// ExitErr prints err with the location of its caller and exits.
func ExitErr(err error) {
	_, file, line, _ := runtime.Caller(1)
	fmt.Fprintf(os.Stderr, "%s:%d: exit on error: %+v\n", file, line, err)
	os.Exit(1)
}

var errImpossible = errors.New("impossible")

// Impossible marks a branch that a broken invariant reached.
func Impossible() {
	ExitErr(errImpossible)
}

// MergeErrors folds the results of a parallel fan-out into one error, nil
// if every entry is nil.
func MergeErrors(errs []error, hint string) error {
	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if msgs == nil {
		return nil
	}
	return errors.Errorf("%s failed with %s: %s", hint, Pluralize(len(msgs), "error", "errors"), strings.Join(msgs, ", "))
}
