// Package errors provides the classified error type used across multidocs.
//
// A ClassifiedError carries a category, a severity and structured context, and
// is built with a fluent ErrorBuilder:
//
//	err := errors.ConfigError("duplicate instance id").
//		WithContext("instance_id", id).
//		Build()
//
// Detection helpers (AsClassified, HasCategory, ...) walk the wrap chain, so an
// instance failure wrapped by the host with fmt.Errorf("%w") is still
// classified. CLIErrorAdapter maps classified errors to exit codes.
package errors
