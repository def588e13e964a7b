package chain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lgns/provisioner/configs"
)

// CoerceArgs converts loosely typed values, as decoded from YAML or JSON, into the Go
// types the ABI packer expects for the given arguments.
func CoerceArgs(arguments abi.Arguments, values []any) ([]any, error) {
	if len(arguments) != len(values) {
		return nil, fmt.Errorf("argument count mismatch: expected %d, got %d", len(arguments), len(values))
	}

	out := make([]any, len(values))
	for i, arg := range arguments {
		v, err := Coerce(arg.Type, values[i])
		if err != nil {
			name := arg.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, arg.Type.String(), err)
		}
		out[i] = v
	}

	return out, nil
}

// Coerce converts a single value into the Go representation of t.
func Coerce(t abi.Type, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("value is nil")
	}

	switch t.T {
	case abi.UintTy, abi.IntTy:
		return coerceInteger(t, value)
	case abi.BoolTy:
		return coerceBool(value)
	case abi.StringTy:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return s, nil
	case abi.AddressTy:
		return coerceAddress(value)
	case abi.BytesTy:
		return coerceBytes(value)
	case abi.FixedBytesTy:
		return coerceFixedBytes(t, value)
	case abi.SliceTy, abi.ArrayTy:
		return coerceList(t, value)
	default:
		return nil, fmt.Errorf("unsupported ABI type %s", t.String())
	}
}

var bigIntType = reflect.TypeOf(&big.Int{})

func coerceInteger(t abi.Type, value any) (any, error) {
	n, err := toBigInt(value)
	if err != nil {
		return nil, err
	}

	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for %s", n, t.String())
	}
	limit := t.Size
	if t.T == abi.IntTy {
		limit--
	}
	if n.BitLen() > limit {
		return nil, fmt.Errorf("value %s overflows %s", n, t.String())
	}

	if t.GetType() == bigIntType {
		return n, nil
	}
	if t.T == abi.UintTy {
		return reflect.ValueOf(n.Uint64()).Convert(t.GetType()).Interface(), nil
	}
	return reflect.ValueOf(n.Int64()).Convert(t.GetType()).Interface(), nil
}

func toBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		n, _ := big.NewFloat(v).Int(nil)
		return n, nil
	case json.Number:
		return toBigInt(v.String())
	case string:
		n, ok := configs.ParseInteger(v)
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", value)
	}
}

func coerceBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, fmt.Errorf("expected bool, got %v", value)
}

func coerceAddress(value any) (any, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case string:
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("%q is not an address", v)
		}
		return common.HexToAddress(v), nil
	default:
		return nil, fmt.Errorf("expected address, got %T", value)
	}
}

func coerceBytes(value any) (any, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		b, err := hexutil.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("%q is not hex bytes: %w", v, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("expected bytes, got %T", value)
	}
}

func coerceFixedBytes(t abi.Type, value any) (any, error) {
	raw, err := coerceBytes(value)
	if err != nil {
		return nil, err
	}
	b := raw.([]byte)
	if len(b) != t.Size {
		return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
	}

	out := reflect.New(t.GetType()).Elem()
	reflect.Copy(out, reflect.ValueOf(b))
	return out.Interface(), nil
}

func coerceList(t abi.Type, value any) (any, error) {
	in := reflect.ValueOf(value)
	if in.Kind() != reflect.Slice && in.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected list, got %T", value)
	}

	var out reflect.Value
	if t.T == abi.ArrayTy {
		if in.Len() != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, in.Len())
		}
		out = reflect.New(t.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(t.GetType(), in.Len(), in.Len())
	}

	for i := 0; i < in.Len(); i++ {
		elem, err := Coerce(*t.Elem, in.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(elem))
	}

	return out.Interface(), nil
}
