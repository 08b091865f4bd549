package sentinel

var _ error = Error("")

// Error is a comparable error backed by a string. Two Error values match
// under errors.Is only when their text is identical.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
