// Package sentinel defines Error, a string error type that can be declared
// as a const. serverproc uses it for every sentinel so that callers can match
// startup failure kinds with errors.Is without the values being reassignable.
package sentinel
