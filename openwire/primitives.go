package openwire

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/wire"
)

// Primitive value type tags for the property-map wire marshal table. The
// full table below covers every primitive command.PropertyMap can hold,
// plus nested lists and maps.
const (
	tagNull byte = iota
	tagBoolean
	tagByte
	tagShort
	tagInt
	tagLong
	tagFloat
	tagDouble
	tagByteArray
	tagString
	tagBigString
	tagMap
	tagList
)

// MarshalPrimitiveMap encodes a property map as a self-contained byte
// blob: an entry count, then name/tagged-value pairs in sorted key order
// for deterministic output.
func MarshalPrimitiveMap(m command.PropertyMap) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := wire.NewWriter(buf)

	names := m.Names()
	sort.Strings(names)

	if err := w.WriteU32(uint32(len(names))); err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := w.WriteUTF8String(name); err != nil {
			return nil, err
		}
		v, _ := m.Get(name)
		if err := marshalPrimitiveValue(w, v); err != nil {
			return nil, fmt.Errorf("openwire: property %q: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalPrimitiveMap decodes a blob produced by MarshalPrimitiveMap.
func UnmarshalPrimitiveMap(b []byte) (command.PropertyMap, error) {
	r := wire.NewReader(bytes.NewReader(b))
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	m := make(command.PropertyMap, n)
	for i := uint32(0); i < n; i++ {
		name, err := r.ReadUTF8String()
		if err != nil {
			return nil, err
		}
		v, err := unmarshalPrimitiveValue(r)
		if err != nil {
			return nil, fmt.Errorf("openwire: property %q: %w", name, err)
		}
		m[name] = v
	}
	return m, nil
}

func marshalPrimitiveValue(w *wire.Writer, v any) error {
	switch x := v.(type) {
	case nil:
		return w.WriteU8(tagNull)
	case bool:
		if err := w.WriteU8(tagBoolean); err != nil {
			return err
		}
		return w.WriteBool(x)
	case int8:
		if err := w.WriteU8(tagByte); err != nil {
			return err
		}
		return w.WriteI8(x)
	case int16:
		if err := w.WriteU8(tagShort); err != nil {
			return err
		}
		return w.WriteI16(x)
	case int32:
		if err := w.WriteU8(tagInt); err != nil {
			return err
		}
		return w.WriteI32(x)
	case int64:
		if err := w.WriteU8(tagLong); err != nil {
			return err
		}
		return w.WriteI64(x)
	case float32:
		if err := w.WriteU8(tagFloat); err != nil {
			return err
		}
		return w.WriteF32(x)
	case float64:
		if err := w.WriteU8(tagDouble); err != nil {
			return err
		}
		return w.WriteF64(x)
	case []byte:
		if err := w.WriteU8(tagByteArray); err != nil {
			return err
		}
		return w.WriteBytes(x)
	case string:
		if len(wire.EncodeModifiedUTF8(x)) > 0xFFFF {
			if err := w.WriteU8(tagBigString); err != nil {
				return err
			}
			return w.WriteBigUTF8String(x)
		}
		if err := w.WriteU8(tagString); err != nil {
			return err
		}
		return w.WriteUTF8String(x)
	case []any:
		if err := w.WriteU8(tagList); err != nil {
			return err
		}
		if err := w.WriteU32(uint32(len(x))); err != nil {
			return err
		}
		for _, item := range x {
			if err := marshalPrimitiveValue(w, item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		return marshalPrimitiveMapValue(w, command.PropertyMap(x))
	case command.PropertyMap:
		return marshalPrimitiveMapValue(w, x)
	default:
		return fmt.Errorf("%w: unsupported property value type %T", command.ErrMessageFormat, v)
	}
}

func marshalPrimitiveMapValue(w *wire.Writer, m command.PropertyMap) error {
	if err := w.WriteU8(tagMap); err != nil {
		return err
	}
	names := m.Names()
	sort.Strings(names)
	if err := w.WriteU32(uint32(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		if err := w.WriteUTF8String(name); err != nil {
			return err
		}
		v, _ := m.Get(name)
		if err := marshalPrimitiveValue(w, v); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalPrimitiveValue(r *wire.Reader) (any, error) {
	tag, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNull:
		return nil, nil
	case tagBoolean:
		return r.ReadBool()
	case tagByte:
		return r.ReadI8()
	case tagShort:
		return r.ReadI16()
	case tagInt:
		return r.ReadI32()
	case tagLong:
		return r.ReadI64()
	case tagFloat:
		return r.ReadF32()
	case tagDouble:
		return r.ReadF64()
	case tagByteArray:
		return r.ReadBytes()
	case tagString:
		return r.ReadUTF8String()
	case tagBigString:
		return r.ReadBigUTF8String()
	case tagList:
		n, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		items := make([]any, n)
		for i := range items {
			items[i], err = unmarshalPrimitiveValue(r)
			if err != nil {
				return nil, err
			}
		}
		return items, nil
	case tagMap:
		n, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		m := make(command.PropertyMap, n)
		for i := uint32(0); i < n; i++ {
			name, err := r.ReadUTF8String()
			if err != nil {
				return nil, err
			}
			v, err := unmarshalPrimitiveValue(r)
			if err != nil {
				return nil, err
			}
			m[name] = v
		}
		return m, nil
	default:
		return nil, fmt.Errorf("openwire: %w: unknown primitive tag %d", ErrMalformedFrame, tag)
	}
}
