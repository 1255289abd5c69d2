package lib

import "errors"

// BadUserInputError marks failures caused by operator-provided configuration
// or flags rather than by the environment. Callers wrap it with context and
// the CLI reports such errors without a stack trace.
var BadUserInputError = errors.New("bad user input")
