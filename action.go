package apiservice

import (
	"strings"
)

// Action is an operation whose route matched the request, with the values
// extracted from the path.
type Action struct {
	Operation *Operation
	Values    Values
}

// SelectAction picks the single operation of t that answers to path under
// desc.Route and desc.Verb.
//
// Operations declaring a verb only take part when it equals desc.Verb.
// When several operations match, the ones whose declared parameter count
// equals the number of route values plus explicit parameters survive, as do
// operations with the Any policy. It fails with CodeServiceActionNotFound
// when nothing survives and CodeActionAlreadyDeclared when more than one does.
func SelectAction(t *HandlerType, desc *ServiceDescriptor, path string) (*Action, error) {
	var candidates []*Action
	for _, op := range t.operations {
		values, ok := op.match(desc.Route, path)
		if !ok {
			continue
		}
		if op.verb != "" && op.verb != strings.ToUpper(desc.Verb) {
			continue
		}
		candidates = append(candidates, &Action{Operation: op, Values: values})
	}

	switch len(candidates) {
	case 0:
		return nil, errServiceActionNotFound(desc.Name)
	case 1:
		return candidates[0], nil
	}

	var survivors []*Action
	for _, c := range candidates {
		expected := len(c.Operation.params)
		actual := len(c.Values) + len(desc.Parameters)
		if expected == actual || c.Operation.equal == Any {
			survivors = append(survivors, c)
		}
	}

	switch len(survivors) {
	case 0:
		return nil, errServiceActionNotFound(desc.Name)
	case 1:
		return survivors[0], nil
	default:
		return nil, errActionAlreadyDeclared(desc.Name, survivors[0].Operation.RouteSegment())
	}
}
