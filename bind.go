package apiservice

// Binding is the result of binding request parameters to an operation.
type Binding struct {
	// Args are the positional arguments, in formal parameter order.
	Args []string
	// MimeType is the response mime type taken from the request, if the
	// operation declares a mime-type parameter.
	MimeType string
	// Table is the ordered parameter table, without the mime-type entry.
	Table []Param
}

// BindParameters binds route values and explicit parameters to the formal
// parameters of op.
//
// Route values rank before explicit parameters and the first entry for a key
// wins. The mime-type parameter, when declared, must be present with a
// non-empty value (CodeQueryParamNotFound otherwise) and is removed from the
// table before binding. Formal parameters without a non-empty value are
// dropped, so Args may be shorter than op.Params().
func BindParameters(op *Operation, values Values, explicit []Param) (*Binding, error) {
	table := make([]Param, 0, len(values)+len(explicit))
	table = append(table, values...)
	table = append(table, explicit...)

	b := &Binding{}
	if op.mimeTypeParam != "" {
		idx := -1
		for i, p := range table {
			if p.Key == op.mimeTypeParam {
				idx = i
				break
			}
		}
		if idx < 0 || table[idx].Value == "" {
			return nil, errQueryParamNotFound(op.mimeTypeParam)
		}
		b.MimeType = table[idx].Value
		table = append(table[:idx:idx], table[idx+1:]...)
	}
	b.Table = table

	for _, name := range op.params {
		if v, ok := lookup(table, name); ok && v != "" {
			b.Args = append(b.Args, v)
		}
	}
	return b, nil
}
