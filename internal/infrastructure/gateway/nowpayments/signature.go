package nowpayments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// VerifySignature reports whether signature is a valid HMAC-SHA512 of
// the IPN payload under the shared secret. The gateway signs the
// payload with all object keys recursively sorted and serialized
// without whitespace, so the raw body is normalized the same way
// before computing the digest. The comparison is constant time.
func VerifySignature(rawBody []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}

	sorted, err := sortedCompactJSON(rawBody)
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(sorted)
	digest := hex.EncodeToString(mac.Sum(nil))

	if len(signature) != len(digest) {
		return false
	}

	return hmac.Equal([]byte(signature), []byte(digest))
}

// sortedCompactJSON re-emits a JSON document with the keys of every
// nested object sorted in byte order. List order and the exact text of
// scalar values are preserved untouched.
func sortedCompactJSON(raw []byte) ([]byte, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid json")
	}

	var buf bytes.Buffer
	if err := writeSorted(json.RawMessage(bytes.TrimSpace(raw)), &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeSorted(raw json.RawMessage, buf *bytes.Buffer) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}

		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(k, buf); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeSorted(obj[k], buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return err
		}

		buf.WriteByte('[')
		for i, elem := range arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeSorted(elem, buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	default:
		// Scalar: pass the received text through verbatim.
		buf.Write(trimmed)
	}

	return nil
}

// writeKey serializes an object key without the HTML escaping
// json.Marshal would apply.
func writeKey(key string, buf *bytes.Buffer) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
