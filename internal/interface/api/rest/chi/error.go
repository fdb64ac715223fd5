package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/NukeThemAII/p2p/internal/application/errs"
)

func checkJSONDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %s must be of type %s, got %s",
			errs.ErrInvalidRequest, typeErr.Field, typeErr.Type, typeErr.Value)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("%w: malformed JSON at offset %d",
			errs.ErrInvalidRequest, syntaxErr.Offset)
	}

	// Decoder reports a body cut off mid-value as ErrUnexpectedEOF.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: unexpected end of body", errs.ErrInvalidRequest)
	}

	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty body", errs.ErrInvalidRequest)
	}

	return err
}
