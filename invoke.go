package apiservice

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

type resultShape int

const (
	resultNone resultShape = iota
	resultValue
	resultError
	resultValueError
)

// signature is the checked shape of an operation function.
type signature struct {
	typ      reflect.Type
	hasCtx   bool
	variadic bool
	result   resultShape
}

// first returns the index of the first formal parameter.
func (s signature) first() int {
	if s.hasCtx {
		return 2
	}
	return 1
}

// fixed returns the number of non-variadic formal parameters.
func (s signature) fixed() int {
	n := s.typ.NumIn() - s.first()
	if s.variadic {
		n--
	}
	return n
}

func (s signature) accepts(n int) bool {
	if s.variadic {
		return n >= s.fixed()
	}
	return n == s.fixed()
}

func inspect(v reflect.Value) (signature, error) {
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return signature{}, errors.New("not a function")
	}
	t := v.Type()
	if t.NumIn() < 1 {
		return signature{}, errors.New("function must take the handler as its first parameter")
	}

	sig := signature{typ: t, variadic: t.IsVariadic()}
	if t.NumIn() > 1 && t.In(1) == contextType {
		sig.hasCtx = true
	}

	for i := sig.first(); i < t.NumIn(); i++ {
		in := t.In(i)
		if sig.variadic && i == t.NumIn()-1 {
			if in.Elem().Kind() != reflect.String {
				return signature{}, fmt.Errorf("variadic parameter must be ...string, got %s", in)
			}
			continue
		}
		if !scalar(in.Kind()) {
			return signature{}, fmt.Errorf("parameter %d has unsupported type %s", i, in)
		}
	}

	switch t.NumOut() {
	case 0:
		sig.result = resultNone
	case 1:
		if t.Out(0) == errorType {
			sig.result = resultError
		} else {
			sig.result = resultValue
		}
	case 2:
		if t.Out(1) != errorType {
			return signature{}, fmt.Errorf("second result must be error, got %s", t.Out(1))
		}
		sig.result = resultValueError
	default:
		return signature{}, fmt.Errorf("too many results (%d)", t.NumOut())
	}
	return sig, nil
}

func scalar(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// arguments builds the reflect call arguments: handler, optional context,
// then the positional arguments converted to the parameter types.
func (s signature) arguments(ctx context.Context, handler any, args []string) ([]reflect.Value, error) {
	t := s.typ
	in := make([]reflect.Value, 0, t.NumIn()+len(args))

	hv := reflect.ValueOf(handler)
	if !hv.IsValid() || !hv.Type().AssignableTo(t.In(0)) {
		return nil, fmt.Errorf("handler %T is not assignable to %s", handler, t.In(0))
	}
	in = append(in, hv)

	if s.hasCtx {
		if ctx == nil {
			in = append(in, reflect.Zero(contextType))
		} else {
			in = append(in, reflect.ValueOf(ctx))
		}
	}

	for i, arg := range args {
		var pt reflect.Type
		if s.variadic && i >= s.fixed() {
			pt = t.In(t.NumIn() - 1).Elem()
		} else {
			pt = t.In(s.first() + i)
		}
		v, err := convert(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, v)
	}
	return in, nil
}

// convert parses a bound string value into a scalar parameter type.
func convert(s string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetFloat(f)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type %s", t)
	}
	return v, nil
}

// CallAction invokes op on handler with the bound positional arguments.
//
// An argument count the operation cannot accept fails with
// CodeActionParameterCount. A domain *Error returned or raised by the
// operation passes through unchanged; any other fault is wrapped into
// CodeExecuteAction. On success the raw result is returned.
func CallAction(ctx context.Context, desc *ServiceDescriptor, handler any, op *Operation, args []string) (res any, err error) {
	service := desc.Name
	if !op.sig.accepts(len(args)) {
		return nil, errActionParameterCount(service, op.name)
	}

	in, err := op.sig.arguments(ctx, handler, args)
	if err != nil {
		return nil, errExecuteAction(service, op.name, err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			if e, ok := rec.(error); ok {
				if svcErr, ok := asDomain(e); ok {
					err = svcErr
					return
				}
				err = errExecuteAction(service, op.name, e)
				return
			}
			err = errExecuteAction(service, op.name, fmt.Errorf("panic: %v", rec))
		}
	}()

	out := op.fn.Call(in)

	switch op.sig.result {
	case resultValue:
		return out[0].Interface(), nil
	case resultError:
		return nil, actionError(service, op.name, out[0])
	case resultValueError:
		if err := actionError(service, op.name, out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return nil, nil
	}
}

func actionError(service, action string, v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	err, _ := v.Interface().(error)
	if svcErr, ok := asDomain(err); ok {
		return svcErr
	}
	return errExecuteAction(service, action, err)
}
