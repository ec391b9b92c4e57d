package mock

// NextError pops and returns the next error in the list if one exists.
// When the list is empty it returns nil and the empty list.
func NextError(errs []error) ([]error, error) {
	if len(errs) == 0 {
		return nil, nil
	}
	e := errs[0]
	return errs[1:], e
}
